package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/events"
)

const (
	openDatesKey  = "calendar.open"
	closeDatesKey = "calendar.close"
	applyRateKey  = "rates.apply"
	resetRateKey  = "rates.reset"
)

var ErrUnknownOperation = errors.New("calendar: unknown operation")

// ReconcileCommand changes one listing's open dates or rates over a
// selection. Dates are grouped into ranges; explicit Ranges follow them.
type ReconcileCommand struct {
	ListingID string            `validate:"required"`
	Operation periods.Operation `validate:"required,oneof=open close apply_rate reset_rate"`
	Dates     []daterange.Day
	Ranges    []daterange.Range
	// RawRate is the rate exactly as entered; only apply_rate reads it.
	RawRate string
	IdemKey string
}

func (c ReconcileCommand) Key() string {
	switch c.Operation {
	case periods.OpOpen:
		return openDatesKey
	case periods.OpClose:
		return closeDatesKey
	case periods.OpApplyRate:
		return applyRateKey
	case periods.OpResetRate:
		return resetRateKey
	}
	return "calendar." + string(c.Operation)
}

// ReconcileKeys are the bus keys ReconcileHandler serves.
func ReconcileKeys() []string {
	return []string{openDatesKey, closeDatesKey, applyRateKey, resetRateKey}
}

func (c ReconcileCommand) ListingKey() string     { return c.ListingID }
func (c ReconcileCommand) IdempotencyKey() string { return c.IdemKey }
func (c ReconcileCommand) ResultPrototype() any   { return &dto.PeriodList{} }

// Validate checks the selection and the rate without touching any store.
func (c ReconcileCommand) Validate() error {
	if _, err := c.Selection(); err != nil {
		return err
	}
	if c.Operation == periods.OpApplyRate {
		if _, err := periods.ParseRate(c.RawRate); err != nil {
			return err
		}
	}
	return nil
}

// Selection returns the ranges to reconcile, in order.
func (c ReconcileCommand) Selection() ([]daterange.Range, error) {
	ranges := daterange.GroupDays(c.Dates)
	for _, r := range c.Ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("range %s: %w", r, err)
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, periods.ErrEmptySelection
	}
	return ranges, nil
}

type ReconcileHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *ReconcileHandler) Handle(ctx context.Context, cmd ReconcileCommand) (*dto.PeriodList, error) {
	if strings.TrimSpace(cmd.ListingID) == "" {
		return nil, periods.ErrListingIDRequired
	}
	ranges, err := cmd.Selection()
	if err != nil {
		return nil, err
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	now := h.now()

	var (
		planner periods.Planner
		rate    periods.Rate
	)
	switch cmd.Operation {
	case periods.OpOpen:
		planner = periods.Open(listingID, now)
	case periods.OpClose:
		planner = periods.Close(listingID, now)
	case periods.OpApplyRate:
		rate, err = periods.ParseRate(cmd.RawRate)
		if err != nil {
			return nil, err
		}
		planner = periods.ApplyRate(listingID, rate, now)
	case periods.OpResetRate:
		planner = periods.ResetRate(listingID, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, cmd.Operation)
	}

	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	res, err := periods.Reconcile(ctx, uow.Periods(unit, planner.Table), listingID, ranges, planner)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("reconciliation failed", "listing_id", listingID, "operation", cmd.Operation, "ranges", len(ranges), "error", err)
		}
		return nil, err
	}

	if res.Deleted+res.Inserted > 0 {
		ev := periods.NewReconciledEvent(cmd.Operation, rate, res, now)
		if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, []events.DomainEvent{ev}); err != nil {
			return nil, err
		}
	}

	if h.Logger != nil {
		h.Logger.Info("calendar reconciled",
			"listing_id", listingID,
			"operation", cmd.Operation,
			"ranges", len(ranges),
			"deleted", res.Deleted,
			"inserted", res.Inserted,
		)
	}
	result := dto.MapReconcileResult(res)
	return &result, nil
}

func (h *ReconcileHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
