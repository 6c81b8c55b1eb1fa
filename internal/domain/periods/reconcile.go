package periods

import (
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

// Changeset is the outcome of reconciling one range: rows to delete, then
// rows to insert. It is applied atomically by the store.
type Changeset struct {
	Table     Table
	ListingID listings.ListingID
	Deletes   []Period
	Inserts   []Period
}

func (cs Changeset) Empty() bool {
	return len(cs.Deletes) == 0 && len(cs.Inserts) == 0
}

func (cs Changeset) DeleteIDs() []PeriodID {
	ids := make([]PeriodID, 0, len(cs.Deletes))
	for _, p := range cs.Deletes {
		ids = append(ids, p.ID)
	}
	return ids
}

// Check rejects changesets whose rows belong to another listing.
func (cs Changeset) Check() error {
	for _, p := range cs.Deletes {
		if p.ListingID != cs.ListingID {
			return ErrForeignListingRows
		}
	}
	for _, p := range cs.Inserts {
		if p.ListingID != cs.ListingID {
			return ErrForeignListingRows
		}
		if err := p.Range.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CandidateWindow is the store query window for a target range. It is one
// day wider than the target on both sides so adjacent periods are returned.
func CandidateWindow(r daterange.Range) daterange.Range {
	return r.Widen(1)
}

// PlanOpen marks r open, folding every open period that overlaps or is
// adjacent to r into a single period.
func PlanOpen(existing []Period, listingID listings.ListingID, r daterange.Range, now time.Time) Changeset {
	target := Period{ListingID: listingID, Range: r, CreatedAt: now.UTC()}
	return merge(TableOpenDates, existing, target, func(Period) bool { return true })
}

// PlanClose removes r from the open periods, keeping the parts of each
// affected period that fall outside r.
func PlanClose(existing []Period, listingID listings.ListingID, r daterange.Range, now time.Time) Changeset {
	return carve(TableOpenDates, existing, listingID, r, now)
}

// PlanApplyRate assigns rate to r. Same-rate periods overlapping or adjacent
// to r merge with it; differently rated periods overlapping r are split so
// only their parts outside r survive at their old rate.
func PlanApplyRate(existing []Period, listingID listings.ListingID, r daterange.Range, rate Rate, now time.Time) (Changeset, error) {
	if !rate.Valid() {
		return Changeset{}, ErrInvalidRate
	}
	target := Period{ListingID: listingID, Range: r, Rate: rate, CreatedAt: now.UTC()}
	return merge(TableRates, existing, target, func(p Period) bool { return p.Rate == rate }), nil
}

// PlanResetRate removes any rate from r; remainders keep their original rate.
func PlanResetRate(existing []Period, listingID listings.ListingID, r daterange.Range, now time.Time) Changeset {
	return carve(TableRates, existing, listingID, r, now)
}

// merge folds sameKey periods touching the target into one span and splits
// the other periods that overlap the target.
func merge(table Table, existing []Period, target Period, sameKey func(Period) bool) Changeset {
	cs := Changeset{Table: table, ListingID: target.ListingID}
	merged := target.Range
	consumed := make([]bool, len(existing))

	for i, p := range existing {
		if p.ListingID != target.ListingID || sameKey(p) || !p.Range.Overlaps(target.Range) {
			continue
		}
		consumed[i] = true
		cs.Deletes = append(cs.Deletes, p)
		cs.Inserts = append(cs.Inserts, remainders(p, target.Range, target.CreatedAt)...)
	}

	// Repeat until stable so a chain of touching periods folds completely.
	for grown := true; grown; {
		grown = false
		for i, p := range existing {
			if consumed[i] || p.ListingID != target.ListingID || !sameKey(p) || !p.Range.Touches(merged) {
				continue
			}
			consumed[i] = true
			merged = merged.Union(p.Range)
			cs.Deletes = append(cs.Deletes, p)
			grown = true
		}
	}

	out := target
	out.Range = merged
	cs.Inserts = append(cs.Inserts, out)
	return cancelNoops(cs)
}

func carve(table Table, existing []Period, listingID listings.ListingID, r daterange.Range, now time.Time) Changeset {
	cs := Changeset{Table: table, ListingID: listingID}
	for _, p := range existing {
		if p.ListingID != listingID || !p.Range.Overlaps(r) {
			continue
		}
		cs.Deletes = append(cs.Deletes, p)
		cs.Inserts = append(cs.Inserts, remainders(p, r, now.UTC())...)
	}
	return cs
}

func remainders(p Period, cut daterange.Range, now time.Time) []Period {
	before, hasBefore, after, hasAfter := p.Range.Subtract(cut)
	var out []Period
	if hasBefore {
		out = append(out, Period{ListingID: p.ListingID, Range: before, Rate: p.Rate, CreatedAt: now})
	}
	if hasAfter {
		out = append(out, Period{ListingID: p.ListingID, Range: after, Rate: p.Rate, CreatedAt: now})
	}
	return out
}

// cancelNoops drops delete/insert pairs describing the same row, so
// reapplying an existing state produces an empty changeset.
func cancelNoops(cs Changeset) Changeset {
	keptDeletes := cs.Deletes[:0:0]
	inserts := append([]Period(nil), cs.Inserts...)
	for _, d := range cs.Deletes {
		matched := -1
		for j, ins := range inserts {
			if ins.Range.Equal(d.Range) && ins.Rate == d.Rate {
				matched = j
				break
			}
		}
		if matched < 0 {
			keptDeletes = append(keptDeletes, d)
			continue
		}
		inserts = append(inserts[:matched], inserts[matched+1:]...)
	}
	cs.Deletes = keptDeletes
	cs.Inserts = inserts
	return cs
}
