package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rentcal/internal/app/middleware"
)

// IdempotencyStore treats rows older than TTL as absent; zero TTL keeps them.
type IdempotencyStore struct {
	q     querier
	table string
	TTL   time.Duration
}

func (s *Store) Idempotency(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{q: s.pool, table: s.tables.Idempotency, TTL: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.q.QueryRow(ctx, fmt.Sprintf(`select command, payload, occurred_at from %s where key=$1`, s.table), key).
		Scan(&rec.Command, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	if s.TTL > 0 && time.Since(rec.OccurredAt) > s.TTL {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.q.Exec(ctx, fmt.Sprintf(`insert into %s (key, command, payload, occurred_at) values ($1,$2,$3,$4)
         on conflict (key) do update set command=excluded.command, payload=excluded.payload, occurred_at=excluded.occurred_at`, s.table),
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt)
	return err
}

type Inbox struct {
	q        querier
	table    string
	consumer string
}

func (s *Store) Inbox(consumer string) *Inbox {
	return &Inbox{q: s.pool, table: s.tables.Inbox, consumer: consumer}
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := i.q.Exec(ctx, fmt.Sprintf(`insert into %s (event_id, consumer) values ($1,$2) on conflict do nothing`, i.table), eventID, i.consumer)
	if err != nil {
		return false, fmt.Errorf("postgres: inbox %s: %w", eventID, err)
	}
	return tag.RowsAffected() == 0, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.q.Exec(ctx, fmt.Sprintf(`delete from %s where event_id=$1 and consumer=$2`, i.table), eventID, i.consumer)
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
