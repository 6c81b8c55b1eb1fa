package outbox

import (
	"context"
	"errors"
	"time"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Message is an outbox row claimed for publishing.
type Message struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store is implemented by every driver's outbox table.
type Store interface {
	// Claim returns the next due message, or nil when none is due.
	Claim(ctx context.Context, workerID string) (*Message, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, reason string) error
}
