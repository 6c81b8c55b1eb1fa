package uow

import (
	"context"

	"rentcal/internal/app/outbox"
	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
)

// UnitOfWork scopes repository access to one transaction. Every period
// reconciliation of a command goes through the same unit.
type UnitOfWork interface {
	OpenPeriods() domainperiods.Repository
	Rates() domainperiods.Repository
	Settings() domainlistings.SettingsRepository
	Bookings() domainlistings.BookingRepository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Periods returns the repository backing table.
func Periods(unit UnitOfWork, table domainperiods.Table) domainperiods.Repository {
	if table == domainperiods.TableRates {
		return unit.Rates()
	}
	return unit.OpenPeriods()
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
	// LockListing asks the store to serialize writers of this listing for
	// the lifetime of the unit.
	LockListing domainlistings.ListingID
}
