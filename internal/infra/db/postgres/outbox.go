package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	appoutbox "rentcal/internal/app/outbox"
	infraoutbox "rentcal/internal/infra/outbox"
)

// OutboxStore writes records inside a unit (q is the transaction) and
// serves the publisher from the pool. Claim uses skip locked so several
// workers never take the same row.
type OutboxStore struct {
	q     querier
	table string
}

// Outbox returns the pool-level store the publishing worker polls.
func (s *Store) Outbox() *OutboxStore {
	return &OutboxStore{q: s.pool, table: s.tables.Outbox}
}

func (o *OutboxStore) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := o.q.Exec(ctx, fmt.Sprintf(`insert into %s (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
         values ($1,$2,$3,$4,$5,$6,$7, now())`, o.table),
		rec.ID, rec.Name, rec.Payload, rec.OccurredAt, rec.Aggregate, headers, infraoutbox.StateNew)
	if err != nil {
		return fmt.Errorf("postgres: outbox add %s: %w", rec.Name, err)
	}
	return nil
}

func (o *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	var msg infraoutbox.Message
	err := o.q.QueryRow(ctx, fmt.Sprintf(`update %[1]s set state=$1, claimed_by=$2, claimed_at=now()
         where id = (
            select id from %[1]s
            where state = any($3) and next_attempt_at <= now()
            order by next_attempt_at
            limit 1
            for update skip locked
         )
         returning id, name, payload, occurred_at, aggregate, headers, attempts`, o.table),
		infraoutbox.StateClaimed, workerID, []string{infraoutbox.StateNew, infraoutbox.StateFailed},
	).Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &msg.Headers, &msg.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: outbox claim: %w", err)
	}
	return &msg, nil
}

func (o *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := o.q.Exec(ctx, fmt.Sprintf(`update %s set state=$1, sent_at=now() where id=$2`, o.table), infraoutbox.StateSent, id)
	return err
}

func (o *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, reason string) error {
	_, err := o.q.Exec(ctx, fmt.Sprintf(`update %s set state=$1, next_attempt_at=$2, last_error=$3, attempts=attempts+1 where id=$4`, o.table),
		infraoutbox.StateFailed, next, reason, id)
	return err
}

var (
	_ infraoutbox.Store = (*OutboxStore)(nil)
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
)
