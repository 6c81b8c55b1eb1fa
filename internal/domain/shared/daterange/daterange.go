package daterange

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire and storage format of a calendar day.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: start must not be after end")
	ErrInvalidDay   = errors.New("daterange: invalid calendar day")
)

// Day is a calendar date without time of day, held as UTC midnight.
type Day struct {
	t time.Time
}

// NewDay builds a day from its components. Out-of-range components are normalized by time.Date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day t falls on in its own location, so a local
// midnight or noon never drifts to a neighbouring day when converted.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day{t: t}, nil
}

// MustDay is ParseDay that panics; meant for tests and fixtures.
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Day) Time() time.Time   { return d.t }
func (d Day) IsZero() bool      { return d.t.IsZero() }
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) Before(other Day) bool { return d.t.Before(other.t) }
func (d Day) After(other Day) bool  { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool  { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Day) Compare(other Day) int { return d.t.Compare(other.t) }

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Day) DaysUntil(other Day) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(data []byte) error {
	parsed, err := ParseDay(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MinDay returns the earlier of two days.
func MinDay(a, b Day) Day {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDay returns the later of two days.
func MaxDay(a, b Day) Day {
	if b.After(a) {
		return b
	}
	return a
}

// Range is an inclusive interval of calendar days [Start, End].
type Range struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

func New(start, end Day) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Single returns the one-day range [d, d].
func Single(d Day) Range {
	return Range{Start: d, End: d}
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (Range, error) {
	s, err := ParseDay(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return Range{}, err
	}
	return New(s, e)
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.Start.After(r.End) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Equal(other Range) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Days returns the number of days covered, both ends included.
func (r Range) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Adjacent reports whether the ranges are consecutive with no day between them.
func (r Range) Adjacent(other Range) bool {
	return r.End.AddDays(1).Equal(other.Start) || other.End.AddDays(1).Equal(r.Start)
}

// Touches reports whether the ranges overlap or are adjacent, meaning they
// can be folded into one contiguous range.
func (r Range) Touches(other Range) bool {
	return r.Overlaps(other) || r.Adjacent(other)
}

func (r Range) Contains(other Range) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

func (r Range) ContainsDay(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Widen grows the range by n days on both sides.
func (r Range) Widen(n int) Range {
	return Range{Start: r.Start.AddDays(-n), End: r.End.AddDays(n)}
}

// Union returns the smallest range covering both.
func (r Range) Union(other Range) Range {
	return Range{Start: MinDay(r.Start, other.Start), End: MaxDay(r.End, other.End)}
}

// Subtract removes other from r and returns the surviving parts before and
// after it. The flags report whether each part exists.
func (r Range) Subtract(other Range) (before Range, hasBefore bool, after Range, hasAfter bool) {
	if !r.Overlaps(other) {
		if r.End.Before(other.Start) {
			return r, true, Range{}, false
		}
		return Range{}, false, r, true
	}
	if r.Start.Before(other.Start) {
		before = Range{Start: r.Start, End: other.Start.AddDays(-1)}
		hasBefore = true
	}
	if r.End.After(other.End) {
		after = Range{Start: other.End.AddDays(1), End: r.End}
		hasAfter = true
	}
	return before, hasBefore, after, hasAfter
}

// EachDay calls fn for every day in the range in ascending order.
func (r Range) EachDay(fn func(Day)) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		fn(d)
	}
}
