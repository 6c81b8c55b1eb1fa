// Package ics renders listing feeds as iCalendar documents.
package ics

import (
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"

	"rentcal/internal/app/policies"
	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/shared/daterange"
)

const (
	SummaryReserved    = "Reserved"
	SummaryUnavailable = "Not available"
)

// Renderer writes one all-day VEVENT per booking and per closed run of days.
type Renderer struct {
	// ProductID defaults to "-//rentcal//calendar//EN".
	ProductID string
	// Domain is appended to event UIDs; defaults to "rentcal".
	Domain string
}

func (r Renderer) Render(feed availability.Feed) ([]byte, error) {
	if feed.ListingID == "" {
		return nil, errors.New("ics: feed without listing id")
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(r.productID())
	name := feed.Name
	if strings.TrimSpace(name) == "" {
		name = string(feed.ListingID)
	}
	cal.SetXWRCalName(name)

	for _, b := range feed.Bookings {
		ev := cal.AddEvent(r.uid("booking", string(b.ID)))
		r.fill(ev, b.Stay(), SummaryReserved, feed)
	}
	for _, closed := range feed.Closed {
		ev := cal.AddEvent(r.uid("closed", string(feed.ListingID)+"-"+closed.Start.String()))
		r.fill(ev, closed, SummaryUnavailable, feed)
	}
	return []byte(cal.Serialize()), nil
}

// fill sets DTSTART/DTEND as dates; DTEND is exclusive so the last day of
// the range is included.
func (r Renderer) fill(ev *ical.VEvent, days daterange.Range, summary string, feed availability.Feed) {
	ev.SetDtStampTime(feed.GeneratedAt)
	ev.SetAllDayStartAt(days.Start.Time())
	ev.SetAllDayEndAt(days.End.AddDays(1).Time())
	ev.SetSummary(summary)
}

func (r Renderer) uid(kind, id string) string {
	domain := r.Domain
	if domain == "" {
		domain = "rentcal"
	}
	return kind + "-" + id + "@" + domain
}

func (r Renderer) productID() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return "-//rentcal//calendar//EN"
}

var _ policies.FeedRenderer = Renderer{}
