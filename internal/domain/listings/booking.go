package listings

import (
	"context"
	"errors"
	"time"

	"rentcal/internal/domain/shared/daterange"
)

var ErrBookingNotFound = errors.New("listings: booking not found")

type BookingID string

type Guest struct {
	Name  string
	Email string
	Phone string
}

// Booking is the calendar's read model of a reservation made elsewhere.
// CheckIn and CheckOut are both shown as occupied.
type Booking struct {
	ID                BookingID
	ListingID         ListingID
	CheckIn           daterange.Day
	CheckOut          daterange.Day
	Guests            int
	NightlyRate       int
	TotalNights       int
	SubtotalNights    int
	DiscountTotal     int
	CleaningFee       int
	NightstayTaxTotal int
	FinalTotal        int
	Status            string
	PaymentStatus     string
	Guest             Guest
	UpdatedAt         time.Time
}

func (b Booking) Stay() daterange.Range {
	return daterange.Range{Start: b.CheckIn, End: b.CheckOut}
}

// Blocked returns the days that cannot be sold because of b: gapDays before
// check-in, the stay itself, and gapDays counted from the check-out day.
func (b Booking) Blocked(gapDays int) daterange.Range {
	r := b.Stay()
	if gapDays <= 0 {
		return r
	}
	r.Start = r.Start.AddDays(-gapDays)
	r.End = daterange.MaxDay(r.End, b.CheckOut.AddDays(gapDays-1))
	return r
}

// BookingAt returns the booking whose stay contains day.
func BookingAt(bookings []Booking, day daterange.Day) (Booking, error) {
	for _, b := range bookings {
		if b.Stay().ContainsDay(day) {
			return b, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

type BookingRepository interface {
	// ByListing returns bookings whose stay overlaps window; a zero window returns all.
	ByListing(ctx context.Context, id ListingID, window daterange.Range) ([]Booking, error)
	Upsert(ctx context.Context, b Booking) error
	Delete(ctx context.Context, id BookingID) error
}
