package dto

import (
	"time"

	"rentcal/internal/domain/listings"
)

type Settings struct {
	ListingID       string    `json:"listingId"`
	Name            string    `json:"name,omitempty"`
	BaseRate        int       `json:"baseRate"`
	MaxGuests       int       `json:"maxGuests"`
	ExtraGuestFee   int       `json:"extraGuestFee"`
	CleaningFee     int       `json:"cleaningFee"`
	MinimumStay     int       `json:"minimumStay"`
	MaximumStay     int       `json:"maximumStay"`
	GapDays         int       `json:"gapDays"`
	WeeklyDiscount  float64   `json:"weeklyDiscount"`
	MonthlyDiscount float64   `json:"monthlyDiscount"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func MapSettings(s *listings.Settings) Settings {
	return Settings{
		ListingID:       string(s.ListingID),
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
		UpdatedAt:       s.UpdatedAt,
	}
}

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID                string `json:"id"`
	ListingID         string `json:"listingId"`
	CheckIn           string `json:"checkIn"`
	CheckOut          string `json:"checkOut"`
	Guests            int    `json:"guests"`
	NightlyRate       int    `json:"nightlyRate"`
	TotalNights       int    `json:"totalNights"`
	SubtotalNights    int    `json:"subtotalNights"`
	DiscountTotal     int    `json:"discountTotal"`
	CleaningFee       int    `json:"cleaningFee"`
	NightstayTaxTotal int    `json:"nightstayTaxTotal"`
	FinalTotal        int    `json:"finalTotal"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"paymentStatus"`
	Guest             Guest  `json:"guest"`
}

func MapBooking(b listings.Booking) Booking {
	return Booking{
		ID:                string(b.ID),
		ListingID:         string(b.ListingID),
		CheckIn:           b.CheckIn.String(),
		CheckOut:          b.CheckOut.String(),
		Guests:            b.Guests,
		NightlyRate:       b.NightlyRate,
		TotalNights:       b.TotalNights,
		SubtotalNights:    b.SubtotalNights,
		DiscountTotal:     b.DiscountTotal,
		CleaningFee:       b.CleaningFee,
		NightstayTaxTotal: b.NightstayTaxTotal,
		FinalTotal:        b.FinalTotal,
		Status:            b.Status,
		PaymentStatus:     b.PaymentStatus,
		Guest:             Guest{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
	}
}
