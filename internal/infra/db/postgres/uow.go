package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
)

type Factory struct {
	Store *Store
}

// Begin opens a transaction. A listing lock is a transaction-scoped
// advisory lock on the listing id, released by commit or rollback, so it
// holds even before the listing has any rows.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, errors.New("postgres: unit of work factory missing store")
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	}
	tx, err := f.Store.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	if opts.LockListing != "" && !opts.ReadOnly {
		if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock(hashtext($1))`, string(opts.LockListing)); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("postgres: lock listing %s: %w", opts.LockListing, err)
		}
	}
	return &Unit{tx: tx, tables: f.Store.tables}, nil
}

type Unit struct {
	tx     pgx.Tx
	tables Tables
}

func (u *Unit) OpenPeriods() domainperiods.Repository {
	return &PeriodRepository{q: u.tx, table: u.tables.OpenDates, kind: domainperiods.TableOpenDates}
}

func (u *Unit) Rates() domainperiods.Repository {
	return &PeriodRepository{q: u.tx, table: u.tables.Rates, kind: domainperiods.TableRates}
}

func (u *Unit) Settings() domainlistings.SettingsRepository {
	return &SettingsRepository{q: u.tx, table: u.tables.Settings}
}

func (u *Unit) Bookings() domainlistings.BookingRepository {
	return &BookingRepository{q: u.tx, table: u.tables.Bookings}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return &OutboxStore{q: u.tx, table: u.tables.Outbox}
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

// Rollback is a no-op once the transaction has been committed.
func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
