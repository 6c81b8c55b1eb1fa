package middleware

import (
	"context"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// LockScopedListing locks the listing a command targets, so two commands on
// the same listing never interleave their reconciliations.
func LockScopedListing(cmd commands.Command) uow.TxOptions {
	if scoped, ok := cmd.(commands.ListingScoped); ok {
		return uow.TxOptions{LockListing: domainlistings.ListingID(scoped.ListingKey())}
	}
	return uow.TxOptions{}
}

// Transaction runs each command inside one unit of work. The unit is rolled
// back unless the handler returns without error and the commit succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = LockScopedListing
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			unit, err := factory.Begin(ctx, optsProvider(cmd))
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}
