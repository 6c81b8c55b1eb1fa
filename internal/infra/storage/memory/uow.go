package memory

import (
	"context"

	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
)

// Factory opens units of work over one Store.
type Factory struct {
	Store *Store
}

// Begin takes the writer slot for read-write units; it waits for the
// current writer or for ctx to end.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if !opts.ReadOnly {
		if err := f.Store.acquire(ctx); err != nil {
			return nil, err
		}
	}
	return &Unit{store: f.Store, readOnly: opts.ReadOnly}, nil
}

// Unit applies writes to the store immediately and keeps an undo log, so a
// rollback restores the state seen at Begin.
type Unit struct {
	store    *Store
	readOnly bool
	done     bool
	undo     []func()
	pending  []appoutbox.EventRecord
}

func (u *Unit) OpenPeriods() domainperiods.Repository {
	return &periodRepository{unit: u, table: domainperiods.TableOpenDates}
}

func (u *Unit) Rates() domainperiods.Repository {
	return &periodRepository{unit: u, table: domainperiods.TableRates}
}

func (u *Unit) Settings() domainlistings.SettingsRepository {
	return &settingsRepository{unit: u}
}

func (u *Unit) Bookings() domainlistings.BookingRepository {
	return &bookingRepository{unit: u}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return unitOutbox{unit: u}
}

// mutate runs fn under the store lock and records its inverse.
func (u *Unit) mutate(fn func() (undo func(), err error)) error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	undo, err := fn()
	if err != nil {
		return err
	}
	if undo != nil {
		u.undo = append(u.undo, undo)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if len(u.pending) > 0 {
		u.store.Outbox.append(u.pending...)
	}
	u.undo, u.pending = nil, nil
	if !u.readOnly {
		u.store.release()
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if len(u.undo) > 0 {
		u.store.mu.Lock()
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
		u.store.mu.Unlock()
	}
	u.undo, u.pending = nil, nil
	if !u.readOnly {
		u.store.release()
	}
	return nil
}

type unitOutbox struct {
	unit *Unit
}

// Add buffers the record until the unit commits.
func (o unitOutbox) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if o.unit.done {
		return ErrUnitClosed
	}
	if o.unit.readOnly {
		return ErrReadOnlyUnit
	}
	o.unit.pending = append(o.unit.pending, rec)
	return nil
}

var _ uow.UoWFactory = Factory{}
