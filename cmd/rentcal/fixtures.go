package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

// fixtureFile seeds listing settings and bookings for local runs.
type fixtureFile struct {
	Settings []settingsFixture `json:"settings"`
	Bookings []dto.Booking     `json:"bookings"`
}

type settingsFixture struct {
	ListingID       string  `json:"listingId"`
	Name            string  `json:"name"`
	BaseRate        int     `json:"baseRate"`
	MaxGuests       int     `json:"maxGuests"`
	ExtraGuestFee   int     `json:"extraGuestFee"`
	CleaningFee     int     `json:"cleaningFee"`
	MinimumStay     int     `json:"minimumStay"`
	MaximumStay     int     `json:"maximumStay"`
	GapDays         int     `json:"gapDays"`
	WeeklyDiscount  float64 `json:"weeklyDiscount"`
	MonthlyDiscount float64 `json:"monthlyDiscount"`
}

// loadFixtures dispatches one command per fixture so seeding goes through
// validation and the listing allowlist like any other write.
func loadFixtures(ctx context.Context, path string, bus commands.Bus, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fx fixtureFile
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, s := range fx.Settings {
		cmd := calendarapp.SaveSettingsCommand{
			ListingID: s.ListingID,
			Payload: domainlistings.SettingsParams{
				Name:            s.Name,
				BaseRate:        s.BaseRate,
				MaxGuests:       s.MaxGuests,
				ExtraGuestFee:   s.ExtraGuestFee,
				CleaningFee:     s.CleaningFee,
				MinimumStay:     s.MinimumStay,
				MaximumStay:     s.MaximumStay,
				GapDays:         s.GapDays,
				WeeklyDiscount:  s.WeeklyDiscount,
				MonthlyDiscount: s.MonthlyDiscount,
			},
		}
		if _, err := commands.Dispatch[calendarapp.SaveSettingsCommand, *dto.Settings](ctx, bus, cmd); err != nil {
			logger.Error("settings fixture rejected", "listing_id", s.ListingID, "error", err)
			continue
		}
		logger.Info("settings fixture imported", "listing_id", s.ListingID)
	}

	for _, b := range fx.Bookings {
		stay, err := daterange.Parse(b.CheckIn, b.CheckOut)
		if err != nil {
			logger.Error("booking fixture invalid", "booking_id", b.ID, "error", err)
			continue
		}
		booking := domainlistings.Booking{
			ID:          domainlistings.BookingID(b.ID),
			ListingID:   domainlistings.ListingID(b.ListingID),
			CheckIn:     stay.Start,
			CheckOut:    stay.End,
			Guests:      b.Guests,
			NightlyRate: b.NightlyRate,
			TotalNights: b.TotalNights,
			FinalTotal:  b.FinalTotal,
			Status:      b.Status,
			Guest:       domainlistings.Guest{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		}
		cmd := calendarapp.ProjectBookingCommand{Booking: booking}
		if _, err := commands.Dispatch[calendarapp.ProjectBookingCommand, struct{}](ctx, bus, cmd); err != nil {
			logger.Error("booking fixture rejected", "booking_id", b.ID, "error", err)
			continue
		}
		logger.Info("booking fixture imported", "booking_id", b.ID, "listing_id", b.ListingID)
	}
	return nil
}
