package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/middleware"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

var errUnknownBookingEvent = errors.New("kafka: unknown booking event type")

// Inbox deduplicates consumed events. Seen records id and reports whether
// it was already recorded; Forget removes it again.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// bookingEnvelope is the CloudEvents JSON the booking system publishes.
type bookingEnvelope struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data dto.Booking `json:"data"`
}

// BookingHandler projects booking events into the calendar read model.
type BookingHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h BookingHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	eventID, cmd, err := DecodeBookingEvent(msg.Value)
	if err != nil {
		if errors.Is(err, errUnknownBookingEvent) {
			// Other booking lifecycle events do not affect the calendar.
			return nil
		}
		return err
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			return err
		}
		if seen {
			if h.Logger != nil {
				h.Logger.Debug("booking event already projected", "event_id", eventID)
			}
			return nil
		}
	}
	_, err = commands.Dispatch[calendarapp.ProjectBookingCommand, struct{}](ctx, h.Commands, cmd)
	if errors.Is(err, middleware.ErrListingNotManaged) {
		return nil
	}
	if err != nil {
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, eventID); ferr != nil && h.Logger != nil {
				h.Logger.Warn("inbox forget failed", "event_id", eventID, "error", ferr)
			}
		}
		return fmt.Errorf("project booking %s: %w", cmd.Booking.ID, err)
	}
	return nil
}

// DecodeBookingEvent parses a booking CloudEvent into a projection command.
func DecodeBookingEvent(body []byte) (string, calendarapp.ProjectBookingCommand, error) {
	var env bookingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", calendarapp.ProjectBookingCommand{}, fmt.Errorf("kafka: decode booking event: %w", err)
	}
	var cancelled bool
	switch env.Type {
	case EventBookingConfirmed:
	case EventBookingCancelled:
		cancelled = true
	default:
		return "", calendarapp.ProjectBookingCommand{}, fmt.Errorf("%w: %q", errUnknownBookingEvent, env.Type)
	}
	if strings.TrimSpace(env.ID) == "" {
		return "", calendarapp.ProjectBookingCommand{}, errors.New("kafka: booking event without id")
	}
	booking, err := bookingFromDTO(env.Data, cancelled)
	if err != nil {
		return "", calendarapp.ProjectBookingCommand{}, err
	}
	booking.UpdatedAt = env.Time
	return env.ID, calendarapp.ProjectBookingCommand{Booking: booking, Cancelled: cancelled}, nil
}

// bookingFromDTO converts the payload; a cancellation only needs the id.
func bookingFromDTO(d dto.Booking, cancelled bool) (domainlistings.Booking, error) {
	b := domainlistings.Booking{
		ID:                domainlistings.BookingID(d.ID),
		ListingID:         domainlistings.ListingID(d.ListingID),
		Guests:            d.Guests,
		NightlyRate:       d.NightlyRate,
		TotalNights:       d.TotalNights,
		SubtotalNights:    d.SubtotalNights,
		DiscountTotal:     d.DiscountTotal,
		CleaningFee:       d.CleaningFee,
		NightstayTaxTotal: d.NightstayTaxTotal,
		FinalTotal:        d.FinalTotal,
		Status:            d.Status,
		PaymentStatus:     d.PaymentStatus,
		Guest:             domainlistings.Guest{Name: d.Guest.Name, Email: d.Guest.Email, Phone: d.Guest.Phone},
	}
	if cancelled && d.CheckIn == "" && d.CheckOut == "" {
		return b, nil
	}
	stay, err := daterange.Parse(d.CheckIn, d.CheckOut)
	if err != nil {
		return domainlistings.Booking{}, fmt.Errorf("kafka: booking %s: %w", d.ID, err)
	}
	b.CheckIn, b.CheckOut = stay.Start, stay.End
	return b, nil
}
