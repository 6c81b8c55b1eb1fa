package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentcal/internal/app/outbox"
	infraoutbox "rentcal/internal/infra/outbox"
)

type outboxEntry struct {
	msg     infraoutbox.Message
	state   string
	nextTry time.Time
	reason  string
}

// Outbox is the committed outbox table of the memory driver. It feeds the
// outbox worker like the database-backed stores do.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{
			msg: infraoutbox.Message{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    rec.Payload,
				OccurredAt: rec.OccurredAt,
				Aggregate:  rec.Aggregate,
				Headers:    rec.Headers,
			},
			state:   infraoutbox.StateNew,
			nextTry: now,
		})
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if (e.state == infraoutbox.StateNew || e.state == infraoutbox.StateFailed) && !e.nextTry.After(now) {
			e.state = infraoutbox.StateClaimed
			msg := e.msg
			return &msg, nil
		}
	}
	return nil, nil
}

// MarkSent drops the entry; the memory driver keeps no history.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.msg.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.msg.ID == id {
			e.state = infraoutbox.StateFailed
			e.nextTry = next
			e.reason = reason
			e.msg.Attempts++
		}
	}
	return nil
}

// Pending counts entries not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

var _ infraoutbox.Store = (*Outbox)(nil)
