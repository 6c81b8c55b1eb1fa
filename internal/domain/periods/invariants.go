package periods

import (
	"fmt"
	"sort"

	"rentcal/internal/domain/listings"
)

// SortByStart orders periods by start day, then end day.
func SortByStart(ps []Period) {
	sort.SliceStable(ps, func(i, j int) bool {
		if c := ps[i].Range.Start.Compare(ps[j].Range.Start); c != 0 {
			return c < 0
		}
		return ps[i].Range.End.Before(ps[j].Range.End)
	})
}

// CheckInvariants verifies the canonical form of a table: every range is
// valid, no two periods of a listing overlap, and open periods never touch.
func CheckInvariants(table Table, ps []Period) error {
	byListing := make(map[listings.ListingID][]Period)
	for _, p := range ps {
		byListing[p.ListingID] = append(byListing[p.ListingID], p)
	}
	for _, group := range byListing {
		if err := checkListing(table, group); err != nil {
			return err
		}
	}
	return nil
}

func checkListing(table Table, ps []Period) error {
	SortByStart(ps)
	for i, p := range ps {
		if err := p.Range.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvariantViolated, p, err)
		}
		if table == TableRates && !p.Rate.Valid() {
			return fmt.Errorf("%w: %s: %v", ErrInvariantViolated, p, ErrInvalidRate)
		}
		if i == 0 {
			continue
		}
		prev := ps[i-1]
		if prev.Range.Overlaps(p.Range) {
			return fmt.Errorf("%w: %s and %s", ErrInvariantViolated, prev, p)
		}
		if table == TableOpenDates && prev.Range.Adjacent(p.Range) {
			return fmt.Errorf("%w: adjacent open periods %s and %s", ErrInvariantViolated, prev, p)
		}
	}
	return nil
}

// ApplyChangeset returns the state of a table after cs, matching deletes by
// id, or by range and rate for rows that were never persisted.
func ApplyChangeset(current []Period, cs Changeset) []Period {
	out := make([]Period, 0, len(current)+len(cs.Inserts))
	for _, p := range current {
		if deleted(p, cs.Deletes) {
			continue
		}
		out = append(out, p)
	}
	out = append(out, cs.Inserts...)
	SortByStart(out)
	return out
}

func deleted(p Period, deletes []Period) bool {
	for _, d := range deletes {
		if d.ID != "" && d.ID == p.ID {
			return true
		}
		if d.ID == "" && p.ID == "" && d.ListingID == p.ListingID && d.Range.Equal(p.Range) && d.Rate == p.Rate {
			return true
		}
	}
	return false
}
