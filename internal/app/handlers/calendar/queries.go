package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentcal/internal/app/dto"
	handlersupport "rentcal/internal/app/handlers/support"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/uow"
	"rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

const (
	listPeriodsKey = "calendar.periods"
	getCalendarKey = "calendar.view"
	bookingAtKey   = "calendar.booking_at"
	exportFeedKey  = "calendar.export"
)

// Clock supplies the current time and the zone "today" is computed in.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Clock) today() daterange.Day {
	return availability.Today(c.now(), c.Location)
}

type ListPeriodsQuery struct {
	ListingID string        `validate:"required"`
	Table     periods.Table `validate:"required,oneof=open_dates rates"`
}

func (q ListPeriodsQuery) Key() string        { return listPeriodsKey }
func (q ListPeriodsQuery) ListingKey() string { return q.ListingID }

type ListPeriodsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPeriodsHandler) Handle(ctx context.Context, q ListPeriodsQuery) (dto.PeriodList, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PeriodList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	rows, err := uow.Periods(unit, q.Table).Find(execCtx, periods.Filter{ListingID: domainlistings.ListingID(q.ListingID)})
	if err != nil {
		return dto.PeriodList{}, err
	}
	return dto.PeriodList{ListingID: q.ListingID, Table: string(q.Table), Periods: dto.MapPeriods(rows)}, nil
}

type GetCalendarQuery struct {
	ListingID string `validate:"required"`
	From      daterange.Day
	To        daterange.Day
}

func (q GetCalendarQuery) Key() string        { return getCalendarKey }
func (q GetCalendarQuery) ListingKey() string { return q.ListingID }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Clock      Clock
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	today := h.Clock.today()
	window, err := availability.Window(q.From, q.To, today)
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	id := domainlistings.ListingID(q.ListingID)
	in := availability.Inputs{ListingID: id, Window: window, Today: today}
	in.Settings, err = optionalSettings(execCtx, unit, id)
	if err != nil {
		return dto.Calendar{}, err
	}
	// Bookings reach back by the gap so buffers of stays just outside the
	// window are still drawn.
	reach := window
	if in.Settings != nil {
		reach = window.Widen(in.Settings.GapDays)
	}
	filter := periods.Filter{ListingID: id, Window: window}
	if in.Open, err = unit.OpenPeriods().Find(execCtx, filter); err != nil {
		return dto.Calendar{}, err
	}
	if in.Rates, err = unit.Rates().Find(execCtx, filter); err != nil {
		return dto.Calendar{}, err
	}
	if in.Bookings, err = unit.Bookings().ByListing(execCtx, id, reach); err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(availability.Build(in)), nil
}

type BookingAtQuery struct {
	ListingID string `validate:"required"`
	Date      daterange.Day
}

func (q BookingAtQuery) Key() string        { return bookingAtKey }
func (q BookingAtQuery) ListingKey() string { return q.ListingID }

type BookingAtHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *BookingAtHandler) Handle(ctx context.Context, q BookingAtQuery) (dto.Booking, error) {
	if q.Date.IsZero() {
		return dto.Booking{}, daterange.ErrInvalidDay
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().ByListing(execCtx, domainlistings.ListingID(q.ListingID), daterange.Single(q.Date))
	if err != nil {
		return dto.Booking{}, err
	}
	b, err := domainlistings.BookingAt(bookings, q.Date)
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

type ExportFeedQuery struct {
	ListingID string `validate:"required"`
}

func (q ExportFeedQuery) Key() string        { return exportFeedKey }
func (q ExportFeedQuery) ListingKey() string { return q.ListingID }

// Feed is a rendered iCalendar document.
type Feed struct {
	ListingID string
	Body      []byte
}

type ExportFeedHandler struct {
	UoWFactory uow.UoWFactory
	Renderer   policies.FeedRenderer
	Clock      Clock
}

func (h *ExportFeedHandler) Handle(ctx context.Context, q ExportFeedQuery) (Feed, error) {
	if h.Renderer == nil {
		return Feed{}, errors.New("calendar: feed renderer not configured")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return Feed{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	id := domainlistings.ListingID(q.ListingID)
	settings, err := optionalSettings(execCtx, unit, id)
	if err != nil {
		return Feed{}, err
	}
	name := q.ListingID
	if settings != nil && settings.Name != "" {
		name = settings.Name
	}
	open, err := unit.OpenPeriods().Find(execCtx, periods.Filter{ListingID: id})
	if err != nil {
		return Feed{}, err
	}
	bookings, err := unit.Bookings().ByListing(execCtx, id, daterange.Range{})
	if err != nil {
		return Feed{}, err
	}
	feed := availability.NewFeed(id, name, h.Clock.today(), open, bookings, h.Clock.now())
	body, err := h.Renderer.Render(feed)
	if err != nil {
		return Feed{}, fmt.Errorf("calendar: render feed: %w", err)
	}
	return Feed{ListingID: q.ListingID, Body: body}, nil
}

func optionalSettings(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID) (*domainlistings.Settings, error) {
	s, err := unit.Settings().ByListing(ctx, id)
	if errors.Is(err, domainlistings.ErrSettingsNotFound) {
		return nil, nil
	}
	return s, err
}
