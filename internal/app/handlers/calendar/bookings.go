package calendar

import (
	"context"
	"errors"
	"log/slog"

	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
)

const projectBookingKey = "bookings.project"

var ErrInvalidBookingEvent = errors.New("calendar: booking event needs booking and listing ids")

// ProjectBookingCommand mirrors a booking event from the reservation system
// into the read model. Cancelled bookings are removed.
type ProjectBookingCommand struct {
	Booking   domainlistings.Booking
	Cancelled bool
}

func (c ProjectBookingCommand) Key() string        { return projectBookingKey }
func (c ProjectBookingCommand) ListingKey() string { return string(c.Booking.ListingID) }

func (c ProjectBookingCommand) Validate() error {
	if c.Booking.ID == "" || c.Booking.ListingID == "" {
		return ErrInvalidBookingEvent
	}
	if c.Cancelled {
		return nil
	}
	return c.Booking.Stay().Validate()
}

type ProjectBookingHandler struct {
	Logger *slog.Logger
}

func (h *ProjectBookingHandler) Handle(ctx context.Context, cmd ProjectBookingCommand) (struct{}, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return struct{}{}, uow.ErrUnitOfWorkMissing
	}
	var err error
	if cmd.Cancelled {
		err = unit.Bookings().Delete(ctx, cmd.Booking.ID)
	} else {
		err = unit.Bookings().Upsert(ctx, cmd.Booking)
	}
	if err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking projected", "booking_id", cmd.Booking.ID, "listing_id", cmd.Booking.ListingID, "cancelled", cmd.Cancelled)
	}
	return struct{}{}, nil
}
