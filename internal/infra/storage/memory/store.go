package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
)

var (
	ErrReadOnlyUnit = errors.New("memory: write in read-only unit of work")
	ErrUnitClosed   = errors.New("memory: unit of work already finished")
)

// Store holds every table of the service in process memory. Writers are
// serialized by a single-slot semaphore held for a unit's lifetime; readers
// take the RW lock only for the duration of one call.
type Store struct {
	writer chan struct{}

	mu       sync.RWMutex
	open     map[listings.ListingID][]periods.Period
	rates    map[listings.ListingID][]periods.Period
	settings map[listings.ListingID]listings.Settings
	bookings map[listings.BookingID]listings.Booking

	Outbox *Outbox
}

func NewStore() *Store {
	return &Store{
		writer:   make(chan struct{}, 1),
		open:     make(map[listings.ListingID][]periods.Period),
		rates:    make(map[listings.ListingID][]periods.Period),
		settings: make(map[listings.ListingID]listings.Settings),
		bookings: make(map[listings.BookingID]listings.Booking),
		Outbox:   NewOutbox(),
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.writer }

func (s *Store) table(t periods.Table) map[listings.ListingID][]periods.Period {
	if t == periods.TableRates {
		return s.rates
	}
	return s.open
}

func clonePeriods(ps []periods.Period) []periods.Period {
	if ps == nil {
		return nil
	}
	out := make([]periods.Period, len(ps))
	copy(out, ps)
	return out
}

func sortBookings(bs []listings.Booking) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].CheckIn.Before(bs[j].CheckIn) })
}
