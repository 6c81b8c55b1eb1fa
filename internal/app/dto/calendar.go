package dto

import (
	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/periods"
)

type Period struct {
	ID        string `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Rate      int    `json:"rate,omitempty"`
}

type PeriodList struct {
	ListingID string   `json:"listingId"`
	Table     string   `json:"table"`
	Periods   []Period `json:"periods"`
	Deleted   int      `json:"deleted"`
	Inserted  int      `json:"inserted"`
}

func MapPeriods(ps []periods.Period) []Period {
	out := make([]Period, 0, len(ps))
	for _, p := range ps {
		out = append(out, Period{
			ID:        string(p.ID),
			StartDate: p.Range.Start.String(),
			EndDate:   p.Range.End.String(),
			Rate:      int(p.Rate),
		})
	}
	return out
}

func MapReconcileResult(res periods.Result) PeriodList {
	return PeriodList{
		ListingID: string(res.ListingID),
		Table:     string(res.Table),
		Periods:   MapPeriods(res.Periods),
		Deleted:   res.Deleted,
		Inserted:  res.Inserted,
	}
}

type CalendarDay struct {
	Date         string `json:"date"`
	Open         bool   `json:"open"`
	Rate         int    `json:"rate,omitempty"`
	RateSource   string `json:"rateSource"`
	Disabled     bool   `json:"disabled"`
	Reason       string `json:"reason,omitempty"`
	BookingID    string `json:"bookingId,omitempty"`
	BookingStart bool   `json:"bookingStart,omitempty"`
	BookingEnd   bool   `json:"bookingEnd,omitempty"`
	GuestName    string `json:"guestName,omitempty"`
}

type Calendar struct {
	ListingID string        `json:"listingId"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	BaseRate  int           `json:"baseRate,omitempty"`
	GapDays   int           `json:"gapDays"`
	Days      []CalendarDay `json:"days"`
}

func MapCalendar(cal availability.Calendar) Calendar {
	out := Calendar{
		ListingID: string(cal.ListingID),
		From:      cal.Window.Start.String(),
		To:        cal.Window.End.String(),
		BaseRate:  cal.BaseRate,
		GapDays:   cal.GapDays,
		Days:      make([]CalendarDay, 0, len(cal.Cells)),
	}
	for _, c := range cal.Cells {
		out.Days = append(out.Days, CalendarDay{
			Date:         c.Date.String(),
			Open:         c.Open,
			Rate:         c.Rate,
			RateSource:   string(c.RateSource),
			Disabled:     c.Disabled,
			Reason:       string(c.Reason),
			BookingID:    string(c.BookingID),
			BookingStart: c.BookingStart,
			BookingEnd:   c.BookingEnd,
			GuestName:    c.GuestName,
		})
	}
	return out
}
