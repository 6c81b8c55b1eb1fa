package availability

import (
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

// FeedHorizon is how far ahead an exported feed reaches.
const FeedHorizon = 365

// Feed is what an external channel needs to avoid double booking: the
// reservations and every run of days the host has not opened.
type Feed struct {
	ListingID   listings.ListingID
	Name        string
	GeneratedAt time.Time
	Window      daterange.Range
	Bookings    []listings.Booking
	Closed      []daterange.Range
}

func NewFeed(id listings.ListingID, name string, today daterange.Day, open []periods.Period, bookings []listings.Booking, now time.Time) Feed {
	window := daterange.Range{Start: today, End: today.AddDays(FeedHorizon - 1)}
	feed := Feed{
		ListingID:   id,
		Name:        name,
		GeneratedAt: now.UTC(),
		Window:      window,
		Closed:      ClosedRanges(open, window),
	}
	for _, b := range bookings {
		if b.Stay().Overlaps(window) {
			feed.Bookings = append(feed.Bookings, b)
		}
	}
	return feed
}
