package periods

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const (
	MinRate Rate = 1
	MaxRate Rate = 32767
)

var (
	ErrInvalidRate        = errors.New("periods: rate must be an integer between 1 and 32767")
	ErrEmptySelection     = errors.New("periods: no dates selected")
	ErrInvariantViolated  = errors.New("periods: overlapping periods after reconciliation")
	ErrPeriodNotFound     = errors.New("periods: period not found")
	ErrListingIDRequired  = errors.New("periods: listing id is required")
	ErrForeignListingRows = errors.New("periods: changeset mixes listings")
)

// Table names the collection a period lives in.
type Table string

const (
	TableOpenDates Table = "open_dates"
	TableRates     Table = "rates"
)

type PeriodID string

// Rate is a nightly price in whole currency units.
type Rate int

func NewRate(v int) (Rate, error) {
	r := Rate(v)
	if r < MinRate || r > MaxRate {
		return 0, ErrInvalidRate
	}
	return r, nil
}

// ParseRate accepts the raw text of a rate input field.
func ParseRate(raw string) (Rate, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	return NewRate(v)
}

func (r Rate) Valid() bool { return r >= MinRate && r <= MaxRate }

// Period is one stored interval. Rate is zero for open periods.
type Period struct {
	ID        PeriodID
	ListingID listings.ListingID
	Range     daterange.Range
	Rate      Rate
	CreatedAt time.Time
}

func (p Period) String() string {
	if p.Rate != 0 {
		return fmt.Sprintf("%s@%d", p.Range, p.Rate)
	}
	return p.Range.String()
}

// Filter selects periods of one listing. A zero Window matches every period;
// otherwise periods with end >= Window.Start and start <= Window.End match.
type Filter struct {
	ListingID listings.ListingID
	Window    daterange.Range
}

func (f Filter) Matches(p Period) bool {
	if p.ListingID != f.ListingID {
		return false
	}
	if f.Window.Start.IsZero() && f.Window.End.IsZero() {
		return true
	}
	return p.Range.Overlaps(f.Window)
}

// Repository is the store port for one period table. Apply must execute the
// changeset's deletes before its inserts and assign ids to inserted rows.
type Repository interface {
	Find(ctx context.Context, filter Filter) ([]Period, error)
	Apply(ctx context.Context, cs Changeset) ([]Period, error)
}
