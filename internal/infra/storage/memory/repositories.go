package memory

import (
	"context"

	"github.com/google/uuid"

	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

type periodRepository struct {
	unit  *Unit
	table domainperiods.Table
}

func (r *periodRepository) Find(ctx context.Context, filter domainperiods.Filter) ([]domainperiods.Period, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domainperiods.Period
	for _, p := range s.table(r.table)[filter.ListingID] {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	domainperiods.SortByStart(out)
	return out, nil
}

// Apply deletes by id, then inserts with fresh ids. An unknown delete id
// fails the whole changeset.
func (r *periodRepository) Apply(ctx context.Context, cs domainperiods.Changeset) ([]domainperiods.Period, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cs.Check(); err != nil {
		return nil, err
	}
	var inserted []domainperiods.Period
	err := r.unit.mutate(func() (func(), error) {
		rows := r.unit.store.table(r.table)
		before := clonePeriods(rows[cs.ListingID])

		index := make(map[domainperiods.PeriodID]bool, len(before))
		for _, p := range before {
			index[p.ID] = true
		}
		for _, d := range cs.Deletes {
			if !index[d.ID] {
				return nil, domainperiods.ErrPeriodNotFound
			}
		}
		inserted = make([]domainperiods.Period, 0, len(cs.Inserts))
		for _, p := range cs.Inserts {
			p.ID = domainperiods.PeriodID(uuid.NewString())
			inserted = append(inserted, p)
		}
		rows[cs.ListingID] = domainperiods.ApplyChangeset(before, domainperiods.Changeset{
			Table:     cs.Table,
			ListingID: cs.ListingID,
			Deletes:   cs.Deletes,
			Inserts:   inserted,
		})
		return func() {
			if before == nil {
				delete(rows, cs.ListingID)
				return
			}
			rows[cs.ListingID] = before
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

type settingsRepository struct {
	unit *Unit
}

func (r *settingsRepository) ByListing(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Settings, error) {
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[id]
	if !ok {
		return nil, domainlistings.ErrSettingsNotFound
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *domainlistings.Settings) error {
	return r.unit.mutate(func() (func(), error) {
		store := r.unit.store.settings
		prev, existed := store[settings.ListingID]
		store[settings.ListingID] = *settings
		return func() {
			if existed {
				store[settings.ListingID] = prev
			} else {
				delete(store, settings.ListingID)
			}
		}, nil
	})
}

type bookingRepository struct {
	unit *Unit
}

func (r *bookingRepository) ByListing(ctx context.Context, id domainlistings.ListingID, window daterange.Range) ([]domainlistings.Booking, error) {
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := window.Start.IsZero() && window.End.IsZero()
	var out []domainlistings.Booking
	for _, b := range s.bookings {
		if b.ListingID != id {
			continue
		}
		if all || b.Stay().Overlaps(window) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *bookingRepository) Upsert(ctx context.Context, b domainlistings.Booking) error {
	return r.unit.mutate(func() (func(), error) {
		store := r.unit.store.bookings
		prev, existed := store[b.ID]
		store[b.ID] = b
		return func() {
			if existed {
				store[b.ID] = prev
			} else {
				delete(store, b.ID)
			}
		}, nil
	})
}

// Delete is a no-op for unknown ids; cancellations may arrive for bookings
// that were never projected.
func (r *bookingRepository) Delete(ctx context.Context, id domainlistings.BookingID) error {
	return r.unit.mutate(func() (func(), error) {
		store := r.unit.store.bookings
		prev, existed := store[id]
		if !existed {
			return nil, nil
		}
		delete(store, id)
		return func() { store[id] = prev }, nil
	})
}

var (
	_ domainperiods.Repository          = (*periodRepository)(nil)
	_ domainlistings.SettingsRepository = (*settingsRepository)(nil)
	_ domainlistings.BookingRepository  = (*bookingRepository)(nil)
)
