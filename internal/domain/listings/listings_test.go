package listings

import (
	"errors"
	"testing"
	"time"

	"rentcal/internal/domain/shared/daterange"
)

func TestSettingsValidation(t *testing.T) {
	valid := SettingsParams{BaseRate: 120, MaxGuests: 4, MinimumStay: 2, MaximumStay: 14, GapDays: 1, WeeklyDiscount: 0.1}
	tests := []struct {
		name   string
		mutate func(*SettingsParams)
		ok     bool
	}{
		{"valid", func(*SettingsParams) {}, true},
		{"unbounded maximum stay", func(p *SettingsParams) { p.MaximumStay = 0; p.MinimumStay = 30 }, true},
		{"missing base rate", func(p *SettingsParams) { p.BaseRate = 0 }, false},
		{"base rate too high", func(p *SettingsParams) { p.BaseRate = 32768 }, false},
		{"negative fee", func(p *SettingsParams) { p.CleaningFee = -1 }, false},
		{"minimum above maximum", func(p *SettingsParams) { p.MinimumStay = 20 }, false},
		{"negative gap", func(p *SettingsParams) { p.GapDays = -1 }, false},
		{"discount over one", func(p *SettingsParams) { p.MonthlyDiscount = 1.5 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("err = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestSettingsUpdateKeepsCreatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSettings("l1", SettingsParams{BaseRate: 100}, created)
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	later := created.Add(48 * time.Hour)
	if err := s.Update(SettingsParams{BaseRate: 140, GapDays: 2}, later); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !s.CreatedAt.Equal(created) || !s.UpdatedAt.Equal(later) {
		t.Fatalf("timestamps = %v / %v", s.CreatedAt, s.UpdatedAt)
	}
	if s.BaseRate != 140 || s.GapDays != 2 {
		t.Fatalf("fields not updated: %+v", s)
	}
	if _, err := NewSettings(" ", SettingsParams{BaseRate: 100}, created); !errors.Is(err, ErrListingIDRequired) {
		t.Fatalf("err = %v, want ErrListingIDRequired", err)
	}
}

func TestBookingBlockedRange(t *testing.T) {
	b := Booking{CheckIn: daterange.MustDay("2024-06-10"), CheckOut: daterange.MustDay("2024-06-14")}
	if got := b.Blocked(0).String(); got != "2024-06-10..2024-06-14" {
		t.Fatalf("no gap = %s", got)
	}
	if got := b.Blocked(1).String(); got != "2024-06-09..2024-06-14" {
		t.Fatalf("gap 1 = %s", got)
	}
	if got := b.Blocked(3).String(); got != "2024-06-07..2024-06-16" {
		t.Fatalf("gap 3 = %s", got)
	}
}

func TestBookingAt(t *testing.T) {
	bookings := []Booking{
		{ID: "b1", CheckIn: daterange.MustDay("2024-06-01"), CheckOut: daterange.MustDay("2024-06-03")},
		{ID: "b2", CheckIn: daterange.MustDay("2024-06-10"), CheckOut: daterange.MustDay("2024-06-12")},
	}
	got, err := BookingAt(bookings, daterange.MustDay("2024-06-12"))
	if err != nil || got.ID != "b2" {
		t.Fatalf("BookingAt = %v, %v", got.ID, err)
	}
	if _, err := BookingAt(bookings, daterange.MustDay("2024-06-05")); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
}

func TestSettingsRecordSavedEvents(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSettings("l1", SettingsParams{BaseRate: 100}, now)
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	evs := s.PullEvents()
	if len(evs) != 1 || evs[0].EventName() != "settings.saved" || !evs[0].(SettingsSavedEvent).Created {
		t.Fatalf("create events = %+v", evs)
	}
	if err := s.Update(SettingsParams{BaseRate: 130}, now.Add(time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}
	evs = s.PullEvents()
	if len(evs) != 1 || evs[0].(SettingsSavedEvent).Created || evs[0].(SettingsSavedEvent).BaseRate != 130 {
		t.Fatalf("update events = %+v", evs)
	}
	if len(s.PullEvents()) != 0 {
		t.Fatal("events not drained")
	}
}
