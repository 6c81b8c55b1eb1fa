package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

func TestRenderProducesAllDayEvents(t *testing.T) {
	feed := availability.Feed{
		ListingID:   "l1",
		Name:        "Sea view",
		GeneratedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Bookings: []listings.Booking{{
			ID:       "b1",
			CheckIn:  daterange.MustDay("2024-06-10"),
			CheckOut: daterange.MustDay("2024-06-14"),
		}},
		Closed: []daterange.Range{{Start: daterange.MustDay("2024-06-20"), End: daterange.MustDay("2024-06-20")}},
	}
	body, err := Renderer{}.Render(feed)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	tests := []struct {
		uid, summary, start, end string
	}{
		{"booking-b1@rentcal", SummaryReserved, "20240610", "20240615"},
		{"closed-l1-2024-06-20@rentcal", SummaryUnavailable, "20240620", "20240621"},
	}
	for i, tc := range tests {
		ev := events[i]
		if got := ev.Id(); got != tc.uid {
			t.Fatalf("event %d uid = %q, want %q", i, got, tc.uid)
		}
		if got := ev.GetProperty(ical.ComponentPropertySummary).Value; got != tc.summary {
			t.Fatalf("event %d summary = %q", i, got)
		}
		if got := ev.GetProperty(ical.ComponentPropertyDtStart).Value; got != tc.start {
			t.Fatalf("event %d start = %q, want %q", i, got, tc.start)
		}
		if got := ev.GetProperty(ical.ComponentPropertyDtEnd).Value; got != tc.end {
			t.Fatalf("event %d end = %q, want %q", i, got, tc.end)
		}
	}
}

func TestRenderRequiresListing(t *testing.T) {
	if _, err := (Renderer{}).Render(availability.Feed{}); err == nil {
		t.Fatalf("expected error for feed without listing")
	}
}
