package periods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

// Planner computes the changeset for one target range from the candidates
// the store returned for it.
type Planner struct {
	Table    Table
	Op       Operation
	plan     func(existing []Period, r daterange.Range) (Changeset, error)
	validate func() error
}

type Operation string

const (
	OpOpen      Operation = "open"
	OpClose     Operation = "close"
	OpApplyRate Operation = "apply_rate"
	OpResetRate Operation = "reset_rate"
)

// Validate checks the planner's own arguments; it never touches a store.
func (p Planner) Validate() error {
	if p.plan == nil {
		return fmt.Errorf("periods: planner for %s is not configured", p.Op)
	}
	if p.validate == nil {
		return nil
	}
	return p.validate()
}

func (p Planner) Plan(existing []Period, r daterange.Range) (Changeset, error) {
	return p.plan(existing, r)
}

func Open(listingID listings.ListingID, now time.Time) Planner {
	return Planner{Table: TableOpenDates, Op: OpOpen, plan: func(existing []Period, r daterange.Range) (Changeset, error) {
		return PlanOpen(existing, listingID, r, now), nil
	}}
}

func Close(listingID listings.ListingID, now time.Time) Planner {
	return Planner{Table: TableOpenDates, Op: OpClose, plan: func(existing []Period, r daterange.Range) (Changeset, error) {
		return PlanClose(existing, listingID, r, now), nil
	}}
}

func ApplyRate(listingID listings.ListingID, rate Rate, now time.Time) Planner {
	return Planner{Table: TableRates, Op: OpApplyRate, plan: func(existing []Period, r daterange.Range) (Changeset, error) {
		return PlanApplyRate(existing, listingID, r, rate, now)
	}, validate: func() error {
		if !rate.Valid() {
			return ErrInvalidRate
		}
		return nil
	}}
}

func ResetRate(listingID listings.ListingID, now time.Time) Planner {
	return Planner{Table: TableRates, Op: OpResetRate, plan: func(existing []Period, r daterange.Range) (Changeset, error) {
		return PlanResetRate(existing, listingID, r, now), nil
	}}
}

// Result is the state of a table after a reconciliation.
type Result struct {
	ListingID listings.ListingID
	Table     Table
	Ranges    []daterange.Range
	Periods   []Period
	Deleted   int
	Inserted  int
}

// Reconcile runs plan over each range in order against repo, then re-reads
// the listing's periods and verifies the table is still canonical. The caller
// owns the transaction; on error nothing applied here may be committed.
func Reconcile(ctx context.Context, repo Repository, listingID listings.ListingID, ranges []daterange.Range, plan Planner) (Result, error) {
	if strings.TrimSpace(string(listingID)) == "" {
		return Result{}, ErrListingIDRequired
	}
	if len(ranges) == 0 {
		return Result{}, ErrEmptySelection
	}
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return Result{}, fmt.Errorf("periods: range %s: %w", r, err)
		}
	}

	res := Result{ListingID: listingID, Table: plan.Table, Ranges: ranges}
	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		existing, err := repo.Find(ctx, Filter{ListingID: listingID, Window: CandidateWindow(r)})
		if err != nil {
			return Result{}, fmt.Errorf("periods: load candidates for %s: %w", r, err)
		}
		cs, err := plan.Plan(existing, r)
		if err != nil {
			return Result{}, err
		}
		if cs.Empty() {
			continue
		}
		if _, err := repo.Apply(ctx, cs); err != nil {
			return Result{}, fmt.Errorf("periods: apply %s %s: %w", plan.Op, r, err)
		}
		res.Deleted += len(cs.Deletes)
		res.Inserted += len(cs.Inserts)
	}

	all, err := repo.Find(ctx, Filter{ListingID: listingID})
	if err != nil {
		return Result{}, fmt.Errorf("periods: reload %s: %w", plan.Table, err)
	}
	if err := CheckInvariants(plan.Table, all); err != nil {
		return Result{}, err
	}
	res.Periods = all
	return res, nil
}
