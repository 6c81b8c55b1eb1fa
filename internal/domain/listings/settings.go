package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentcal/internal/domain/shared/events"
)

type ListingID string

const (
	minBaseRate = 1
	maxBaseRate = 32767
)

var (
	ErrSettingsNotFound  = errors.New("listings: settings not found")
	ErrInvalidSettings   = errors.New("listings: invalid settings")
	ErrListingIDRequired = errors.New("listings: listing id is required")
)

// Settings are the per-listing pricing and stay rules. BaseRate is the price
// of any night no rate period covers.
type Settings struct {
	ListingID       ListingID
	Name            string
	BaseRate        int
	MaxGuests       int
	ExtraGuestFee   int
	CleaningFee     int
	MinimumStay     int
	MaximumStay     int
	GapDays         int
	WeeklyDiscount  float64
	MonthlyDiscount float64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	events events.Recorder
}

type SettingsParams struct {
	Name            string
	BaseRate        int
	MaxGuests       int
	ExtraGuestFee   int
	CleaningFee     int
	MinimumStay     int
	MaximumStay     int
	GapDays         int
	WeeklyDiscount  float64
	MonthlyDiscount float64
}

// NewSettings validates params and returns fresh settings for id.
func NewSettings(id ListingID, params SettingsParams, now time.Time) (*Settings, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrListingIDRequired
	}
	s := &Settings{ListingID: id, CreatedAt: now.UTC()}
	if err := s.Update(params, now); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces every editable field, keeping CreatedAt, and records a
// SettingsSavedEvent.
func (s *Settings) Update(params SettingsParams, now time.Time) error {
	if err := params.Validate(); err != nil {
		return err
	}
	created := s.UpdatedAt.IsZero()
	s.Name = strings.TrimSpace(params.Name)
	s.BaseRate = params.BaseRate
	s.MaxGuests = params.MaxGuests
	s.ExtraGuestFee = params.ExtraGuestFee
	s.CleaningFee = params.CleaningFee
	s.MinimumStay = params.MinimumStay
	s.MaximumStay = params.MaximumStay
	s.GapDays = params.GapDays
	s.WeeklyDiscount = params.WeeklyDiscount
	s.MonthlyDiscount = params.MonthlyDiscount
	s.UpdatedAt = now.UTC()
	s.events.Record(SettingsSavedEvent{
		ListingID: s.ListingID,
		BaseRate:  s.BaseRate,
		GapDays:   s.GapDays,
		Created:   created,
		At:        s.UpdatedAt,
	})
	return nil
}

// PullEvents drains the events recorded since the settings were loaded.
func (s *Settings) PullEvents() []events.DomainEvent {
	return s.events.Drain()
}

func (p SettingsParams) Validate() error {
	var problems []string
	if p.BaseRate < minBaseRate || p.BaseRate > maxBaseRate {
		problems = append(problems, fmt.Sprintf("base rate must be between %d and %d", minBaseRate, maxBaseRate))
	}
	if p.MaxGuests < 0 || p.ExtraGuestFee < 0 || p.CleaningFee < 0 {
		problems = append(problems, "guests and fees must not be negative")
	}
	if p.MinimumStay < 0 || p.MaximumStay < 0 {
		problems = append(problems, "stay limits must not be negative")
	}
	if p.MaximumStay > 0 && p.MinimumStay > p.MaximumStay {
		problems = append(problems, "minimum stay exceeds maximum stay")
	}
	if p.GapDays < 0 {
		problems = append(problems, "gap days must not be negative")
	}
	if p.WeeklyDiscount < 0 || p.WeeklyDiscount > 1 || p.MonthlyDiscount < 0 || p.MonthlyDiscount > 1 {
		problems = append(problems, "discounts must be between 0 and 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

type SettingsRepository interface {
	ByListing(ctx context.Context, id ListingID) (*Settings, error)
	// Save inserts the settings when absent and overwrites them otherwise.
	Save(ctx context.Context, s *Settings) error
}
