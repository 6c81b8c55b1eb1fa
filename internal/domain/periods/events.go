package periods

import (
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/events"
)

// ReconciledEvent is recorded once per successful command. Rate is zero
// except for apply_rate.
type ReconciledEvent struct {
	ListingID listings.ListingID `json:"listing_id"`
	Operation Operation          `json:"operation"`
	Ranges    []daterange.Range  `json:"ranges"`
	Rate      Rate               `json:"rate,omitempty"`
	Deleted   int                `json:"deleted"`
	Inserted  int                `json:"inserted"`
	At        time.Time          `json:"at"`
}

func (e ReconciledEvent) EventName() string {
	switch e.Operation {
	case OpOpen:
		return "calendar.opened"
	case OpClose:
		return "calendar.closed"
	case OpApplyRate:
		return "rates.applied"
	case OpResetRate:
		return "rates.reset"
	}
	return "calendar.reconciled"
}

func (e ReconciledEvent) AggregateID() string   { return string(e.ListingID) }
func (e ReconciledEvent) OccurredAt() time.Time { return e.At }

// NewReconciledEvent builds the event for res.
func NewReconciledEvent(op Operation, rate Rate, res Result, at time.Time) events.DomainEvent {
	return ReconciledEvent{
		ListingID: res.ListingID,
		Operation: op,
		Ranges:    res.Ranges,
		Rate:      rate,
		Deleted:   res.Deleted,
		Inserted:  res.Inserted,
		At:        at.UTC(),
	}
}
