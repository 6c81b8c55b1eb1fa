// Package wiring registers the calendar handlers on the buses and wraps the
// buses in the middleware pipeline.
package wiring

import (
	"context"
	"log/slog"
	"time"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/uow"
)

type Deps struct {
	Factory     uow.UoWFactory
	Idempotency middleware.IdempotencyStore
	Validator   middleware.Validator
	// Authorizer defaults to an allowlist admitting every listing.
	Authorizer middleware.Authorizer
	// Flusher defaults to a no-op.
	Flusher  outbox.Flusher
	Renderer policies.FeedRenderer
	Encoder  outbox.EventEncoder
	Now      func() time.Time
	Location *time.Location
	Logger   *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func Build(d Deps) Buses {
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.Authorizer == nil {
		d.Authorizer = middleware.NewListingAllowlist(nil)
	}
	if d.Flusher == nil {
		d.Flusher = outbox.FlusherFunc(func(context.Context) error { return nil })
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	clock := calendarapp.Clock{Now: d.Now, Location: d.Location}

	commandBus := commands.NewInMemoryBus()
	reconcile := &calendarapp.ReconcileHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now}
	for _, key := range calendarapp.ReconcileKeys() {
		commands.RegisterHandler[calendarapp.ReconcileCommand, *dto.PeriodList](commandBus, key, reconcile)
	}
	commands.RegisterHandler[calendarapp.SaveSettingsCommand, *dto.Settings](commandBus, calendarapp.SaveSettingsCommand{}.Key(),
		&calendarapp.SaveSettingsHandler{Logger: d.Logger, Encoder: d.Encoder, Now: d.Now})
	commands.RegisterHandler[calendarapp.ProjectBookingCommand, struct{}](commandBus, calendarapp.ProjectBookingCommand{}.Key(),
		&calendarapp.ProjectBookingHandler{Logger: d.Logger})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[calendarapp.ListPeriodsQuery, dto.PeriodList](queryBus, calendarapp.ListPeriodsQuery{}.Key(),
		&calendarapp.ListPeriodsHandler{UoWFactory: d.Factory})
	queries.RegisterHandler[calendarapp.GetCalendarQuery, dto.Calendar](queryBus, calendarapp.GetCalendarQuery{}.Key(),
		&calendarapp.GetCalendarHandler{UoWFactory: d.Factory, Clock: clock})
	queries.RegisterHandler[calendarapp.BookingAtQuery, dto.Booking](queryBus, calendarapp.BookingAtQuery{}.Key(),
		&calendarapp.BookingAtHandler{UoWFactory: d.Factory})
	queries.RegisterHandler[calendarapp.GetSettingsQuery, dto.Settings](queryBus, calendarapp.GetSettingsQuery{}.Key(),
		&calendarapp.GetSettingsHandler{UoWFactory: d.Factory})
	queries.RegisterHandler[calendarapp.ExportFeedQuery, calendarapp.Feed](queryBus, calendarapp.ExportFeedQuery{}.Key(),
		&calendarapp.ExportFeedHandler{UoWFactory: d.Factory, Renderer: d.Renderer, Clock: clock})

	if d.Logger != nil {
		d.Logger.Debug("buses wired", "commands", commandBus.Keys(), "queries", queryBus.Keys())
	}

	cmdMW := []middleware.CommandMiddleware{
		middleware.Validation(d.Validator),
		middleware.Authorization(d.Authorizer),
	}
	if d.Idempotency != nil {
		cmdMW = append(cmdMW, middleware.Idempotency(d.Idempotency, nil))
	}
	// The flush wraps the transaction so it only runs after a commit.
	cmdMW = append(cmdMW,
		middleware.OutboxFlush(d.Flusher, d.Logger),
		middleware.Transaction(d.Factory, nil),
	)

	return Buses{
		Commands: middleware.ChainCommands(commandBus, cmdMW...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(d.Validator),
			middleware.QueryAuthorization(d.Authorizer),
		),
	}
}
