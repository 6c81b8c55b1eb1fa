package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentcal/internal/app/dto"
	handlersupport "rentcal/internal/app/handlers/support"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
)

const (
	saveSettingsKey = "settings.save"
	getSettingsKey  = "settings.get"
)

type SaveSettingsCommand struct {
	ListingID string `validate:"required"`
	Payload   domainlistings.SettingsParams
	IdemKey   string
}

func (c SaveSettingsCommand) Key() string            { return saveSettingsKey }
func (c SaveSettingsCommand) ListingKey() string     { return c.ListingID }
func (c SaveSettingsCommand) IdempotencyKey() string { return c.IdemKey }
func (c SaveSettingsCommand) ResultPrototype() any   { return &dto.Settings{} }
func (c SaveSettingsCommand) Validate() error        { return c.Payload.Validate() }

type SaveSettingsHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle upserts the listing settings.
func (h *SaveSettingsHandler) Handle(ctx context.Context, cmd SaveSettingsCommand) (*dto.Settings, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	id := domainlistings.ListingID(cmd.ListingID)

	created := false
	settings, err := unit.Settings().ByListing(ctx, id)
	switch {
	case errors.Is(err, domainlistings.ErrSettingsNotFound):
		settings, err = domainlistings.NewSettings(id, cmd.Payload, now)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, err
	default:
		if err := settings.Update(cmd.Payload, now); err != nil {
			return nil, err
		}
	}
	evs := settings.PullEvents()
	if err := unit.Settings().Save(ctx, settings); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, evs); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing settings saved", "listing_id", id, "created", created, "base_rate", settings.BaseRate)
	}
	result := dto.MapSettings(settings)
	return &result, nil
}

type GetSettingsQuery struct {
	ListingID string `validate:"required"`
}

func (q GetSettingsQuery) Key() string        { return getSettingsKey }
func (q GetSettingsQuery) ListingKey() string { return q.ListingID }

type GetSettingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetSettingsHandler) Handle(ctx context.Context, q GetSettingsQuery) (dto.Settings, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Settings{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	settings, err := unit.Settings().ByListing(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Settings{}, err
	}
	return dto.MapSettings(settings), nil
}
