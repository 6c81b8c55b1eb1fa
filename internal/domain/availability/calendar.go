package availability

import (
	"errors"
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

// MaxDays bounds a single calendar view.
const MaxDays = 400

var ErrWindowInverted = errors.New("availability: calendar window ends before it starts")

type BlockReason string

const (
	ReasonBooking BlockReason = "BOOKING"
	ReasonGap     BlockReason = "GAP_BUFFER"
	ReasonPast    BlockReason = "PAST"
)

type RateSource string

const (
	RateFromPeriod RateSource = "period"
	RateFromBase   RateSource = "base"
	RateNone       RateSource = "none"
)

type Cell struct {
	Date         daterange.Day
	Open         bool
	Rate         int
	RateSource   RateSource
	Disabled     bool
	Reason       BlockReason
	BookingID    listings.BookingID
	BookingStart bool
	BookingEnd   bool
	GuestName    string
}

type Calendar struct {
	ListingID listings.ListingID
	Window    daterange.Range
	BaseRate  int
	GapDays   int
	Cells     []Cell
}

// Inputs are the rows a calendar is rendered from. Settings may be nil for a
// listing that was never configured.
type Inputs struct {
	ListingID listings.ListingID
	Window    daterange.Range
	Today     daterange.Day
	Settings  *listings.Settings
	Open      []periods.Period
	Rates     []periods.Period
	Bookings  []listings.Booking
}

// Window resolves the requested bounds. Missing bounds default to the month
// of today, and the result never spans more than MaxDays.
func Window(from, to, today daterange.Day) (daterange.Range, error) {
	if from.IsZero() {
		t := today.Time()
		from = daterange.NewDay(t.Year(), t.Month(), 1)
	}
	if to.IsZero() {
		t := from.Time()
		to = daterange.NewDay(t.Year(), t.Month()+1, 0)
	}
	if to.Before(from) {
		return daterange.Range{}, ErrWindowInverted
	}
	r := daterange.Range{Start: from, End: to}
	if r.Days() > MaxDays {
		r.End = from.AddDays(MaxDays - 1)
	}
	return r, nil
}

// Build renders one cell per day of in.Window.
func Build(in Inputs) Calendar {
	cal := Calendar{ListingID: in.ListingID, Window: in.Window}
	if in.Settings != nil {
		cal.BaseRate = in.Settings.BaseRate
		cal.GapDays = in.Settings.GapDays
	}

	open := make(map[daterange.Day]bool)
	for _, p := range in.Open {
		eachInWindow(p.Range, in.Window, func(d daterange.Day) { open[d] = true })
	}
	rates := make(map[daterange.Day]periods.Rate)
	for _, p := range in.Rates {
		eachInWindow(p.Range, in.Window, func(d daterange.Day) { rates[d] = p.Rate })
	}

	type occupancy struct {
		booking listings.Booking
		reason  BlockReason
	}
	blocked := make(map[daterange.Day]occupancy)
	// Gap buffers first so a stay always wins over a neighbour's buffer.
	for _, b := range in.Bookings {
		eachInWindow(b.Blocked(cal.GapDays), in.Window, func(d daterange.Day) {
			if _, taken := blocked[d]; !taken {
				blocked[d] = occupancy{booking: b, reason: ReasonGap}
			}
		})
	}
	for _, b := range in.Bookings {
		eachInWindow(b.Stay(), in.Window, func(d daterange.Day) {
			blocked[d] = occupancy{booking: b, reason: ReasonBooking}
		})
	}

	cal.Cells = make([]Cell, 0, in.Window.Days())
	in.Window.EachDay(func(d daterange.Day) {
		cell := Cell{Date: d, Open: open[d], RateSource: RateNone}
		if rate, ok := rates[d]; ok {
			cell.Rate, cell.RateSource = int(rate), RateFromPeriod
		} else if cal.BaseRate > 0 {
			cell.Rate, cell.RateSource = cal.BaseRate, RateFromBase
		}
		if occ, ok := blocked[d]; ok {
			cell.Disabled, cell.Reason = true, occ.reason
			if occ.reason == ReasonBooking {
				cell.BookingID = occ.booking.ID
				cell.BookingStart = d.Equal(occ.booking.CheckIn)
				cell.BookingEnd = d.Equal(occ.booking.CheckOut)
				if cell.BookingStart {
					cell.GuestName = occ.booking.Guest.Name
				}
			}
		} else if !in.Today.IsZero() && d.Before(in.Today) {
			cell.Disabled, cell.Reason = true, ReasonPast
		}
		cal.Cells = append(cal.Cells, cell)
	})
	return cal
}

func eachInWindow(r, window daterange.Range, fn func(daterange.Day)) {
	if !r.Overlaps(window) {
		return
	}
	clipped := daterange.Range{Start: daterange.MaxDay(r.Start, window.Start), End: daterange.MinDay(r.End, window.End)}
	clipped.EachDay(fn)
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) daterange.Day {
	if loc == nil {
		loc = time.UTC
	}
	return daterange.DayOf(now.In(loc))
}

// ClosedRanges lists the maximal runs of window not covered by any open
// period.
func ClosedRanges(open []periods.Period, window daterange.Range) []daterange.Range {
	sorted := append([]periods.Period(nil), open...)
	periods.SortByStart(sorted)
	var out []daterange.Range
	cursor := window.Start
	for _, p := range sorted {
		if !p.Range.Overlaps(window) {
			continue
		}
		if cursor.Before(p.Range.Start) {
			out = append(out, daterange.Range{Start: cursor, End: p.Range.Start.AddDays(-1)})
		}
		if next := p.Range.End.AddDays(1); next.After(cursor) {
			cursor = next
		}
	}
	if !cursor.After(window.End) {
		out = append(out, daterange.Range{Start: cursor, End: window.End})
	}
	return out
}
