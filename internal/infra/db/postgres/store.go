// Package postgres stores calendars in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is what repositories need from a pool or a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tables are the physical table names, all sharing one prefix.
type Tables struct {
	OpenDates   string
	Rates       string
	Settings    string
	Bookings    string
	Outbox      string
	Idempotency string
	Inbox       string
}

func NewTables(prefix string) Tables {
	return Tables{
		OpenDates:   prefix + "open_dates",
		Rates:       prefix + "rates",
		Settings:    prefix + "listing_settings",
		Bookings:    prefix + "bookings",
		Outbox:      prefix + "app_outbox",
		Idempotency: prefix + "app_idempotency",
		Inbox:       prefix + "app_inbox",
	}
}

type Store struct {
	pool   *pgxpool.Pool
	tables Tables
}

// Open connects and creates missing tables.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := &Store{pool: pool, tables: NewTables(prefix)}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	for _, q := range schema(s.tables) {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}

func schema(t Tables) []string {
	period := func(name, rate string) string {
		return fmt.Sprintf(`create table if not exists %s (
            id text primary key,
            listing_id text not null,
            start_date date not null,
            end_date date not null,%s
            created_at timestamptz not null default now(),
            check (start_date <= end_date)
        )`, name, rate)
	}
	return []string{
		period(t.OpenDates, ""),
		period(t.Rates, "\n            rate integer not null check (rate between 1 and 32767),"),
		fmt.Sprintf(`create index if not exists %s_listing_idx on %s (listing_id, start_date)`, t.OpenDates, t.OpenDates),
		fmt.Sprintf(`create index if not exists %s_listing_idx on %s (listing_id, start_date)`, t.Rates, t.Rates),
		fmt.Sprintf(`create table if not exists %s (
            listing_id text primary key,
            name text not null default '',
            base_rate integer not null,
            max_guests integer not null default 0,
            extra_guest_fee integer not null default 0,
            cleaning_fee integer not null default 0,
            minimum_stay integer not null default 0,
            maximum_stay integer not null default 0,
            gap_days integer not null default 0,
            weekly_discount double precision not null default 0,
            monthly_discount double precision not null default 0,
            created_at timestamptz not null default now(),
            updated_at timestamptz not null default now()
        )`, t.Settings),
		fmt.Sprintf(`create table if not exists %s (
            id text primary key,
            listing_id text not null,
            check_in date not null,
            check_out date not null,
            guests integer not null default 0,
            nightly_rate integer not null default 0,
            total_nights integer not null default 0,
            subtotal_nights integer not null default 0,
            discount_total integer not null default 0,
            cleaning_fee integer not null default 0,
            nightstay_tax_total integer not null default 0,
            final_total integer not null default 0,
            status text not null default '',
            payment_status text not null default '',
            guest_name text not null default '',
            guest_email text not null default '',
            guest_phone text not null default '',
            updated_at timestamptz not null default now()
        )`, t.Bookings),
		fmt.Sprintf(`create index if not exists %s_listing_idx on %s (listing_id, check_in)`, t.Bookings, t.Bookings),
		fmt.Sprintf(`create table if not exists %s (
            id text primary key,
            name text not null,
            payload bytea not null,
            occurred_at timestamptz not null,
            aggregate text not null default '',
            headers jsonb not null default '{}',
            state text not null,
            attempts integer not null default 0,
            next_attempt_at timestamptz not null default now(),
            claimed_by text,
            claimed_at timestamptz,
            sent_at timestamptz,
            last_error text,
            created_at timestamptz not null default now()
        )`, t.Outbox),
		fmt.Sprintf(`create index if not exists %s_due_idx on %s (state, next_attempt_at)`, t.Outbox, t.Outbox),
		fmt.Sprintf(`create table if not exists %s (
            key text primary key,
            command text not null,
            payload bytea,
            occurred_at timestamptz not null,
            created_at timestamptz not null default now()
        )`, t.Idempotency),
		fmt.Sprintf(`create table if not exists %s (
            event_id text not null,
            consumer text not null,
            received_at timestamptz not null default now(),
            primary key (event_id, consumer)
        )`, t.Inbox),
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }
