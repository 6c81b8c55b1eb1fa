package daterange

import (
	"sort"
	"time"
)

// GroupDays partitions a set of days into maximal runs of consecutive days.
// Duplicates are ignored and the result is ordered by start.
func GroupDays(days []Day) []Range {
	if len(days) == 0 {
		return nil
	}
	sorted := make([]Day, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	ranges := make([]Range, 0, 1)
	current := Single(sorted[0])
	for _, d := range sorted[1:] {
		switch gap := current.End.DaysUntil(d); {
		case gap <= 0:
			continue
		case gap == 1:
			current.End = d
		default:
			ranges = append(ranges, current)
			current = Single(d)
		}
	}
	return append(ranges, current)
}

// GroupTimes is GroupDays for instants reported by a calendar widget; each
// instant is reduced to its calendar day in its own location first.
func GroupTimes(times []time.Time) []Range {
	days := make([]Day, 0, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		days = append(days, DayOf(t))
	}
	return GroupDays(days)
}
