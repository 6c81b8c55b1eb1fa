package middleware

import (
	"context"
	"errors"
	"fmt"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/queries"
)

var ErrListingNotManaged = errors.New("middleware: listing is not managed by this service")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ListingAllowlist admits messages whose listing is in the set. An empty set
// admits every listing; messages without a listing always pass.
type ListingAllowlist map[string]struct{}

func NewListingAllowlist(ids []string) ListingAllowlist {
	set := make(ListingAllowlist, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func (a ListingAllowlist) Authorize(_ context.Context, message any) error {
	if len(a) == 0 {
		return nil
	}
	scoped, ok := message.(commands.ListingScoped)
	if !ok {
		return nil
	}
	if _, ok := a[scoped.ListingKey()]; !ok {
		return fmt.Errorf("%w: %s", ErrListingNotManaged, scoped.ListingKey())
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
