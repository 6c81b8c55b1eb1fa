package daterange

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDayRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "2024-13-01", "2024-02-30", "01/02/2024", "2024-1-1"} {
		if _, err := ParseDay(raw); !errors.Is(err, ErrInvalidDay) {
			t.Errorf("ParseDay(%q) err = %v, want ErrInvalidDay", raw, err)
		}
	}
}

func TestDayOfKeepsLocalCalendarDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	local := time.Date(2024, 3, 1, 0, 30, 0, 0, tokyo)
	if got := DayOf(local).String(); got != "2024-03-01" {
		t.Fatalf("DayOf = %s, want 2024-03-01", got)
	}
}

func TestRangeRelations(t *testing.T) {
	a := mustRange(t, "2024-01-01", "2024-01-05")
	tests := []struct {
		name     string
		other    Range
		overlaps bool
		adjacent bool
	}{
		{"inside", mustRange(t, "2024-01-02", "2024-01-03"), true, false},
		{"shares end day", mustRange(t, "2024-01-05", "2024-01-09"), true, false},
		{"next day", mustRange(t, "2024-01-06", "2024-01-09"), false, true},
		{"previous day", mustRange(t, "2023-12-20", "2023-12-31"), false, true},
		{"one day gap", mustRange(t, "2024-01-07", "2024-01-09"), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(tc.other); got != tc.overlaps {
				t.Errorf("Overlaps = %v, want %v", got, tc.overlaps)
			}
			if got := a.Adjacent(tc.other); got != tc.adjacent {
				t.Errorf("Adjacent = %v, want %v", got, tc.adjacent)
			}
			if got := a.Touches(tc.other); got != (tc.overlaps || tc.adjacent) {
				t.Errorf("Touches = %v", got)
			}
		})
	}
}

func TestRangeSubtract(t *testing.T) {
	p := mustRange(t, "2024-01-01", "2024-01-10")
	before, hasBefore, after, hasAfter := p.Subtract(mustRange(t, "2024-01-04", "2024-01-06"))
	if !hasBefore || before.String() != "2024-01-01..2024-01-03" {
		t.Fatalf("before = %v (%v)", before, hasBefore)
	}
	if !hasAfter || after.String() != "2024-01-07..2024-01-10" {
		t.Fatalf("after = %v (%v)", after, hasAfter)
	}

	_, hasBefore, _, hasAfter = p.Subtract(mustRange(t, "2023-12-01", "2024-02-01"))
	if hasBefore || hasAfter {
		t.Fatalf("fully covered range should leave nothing")
	}
}

func TestNewRejectsInvertedRange(t *testing.T) {
	if _, err := Parse("2024-01-05", "2024-01-04"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	r, err := Parse("2024-01-05", "2024-01-05")
	if err != nil {
		t.Fatalf("single day range: %v", err)
	}
	if r.Days() != 1 {
		t.Fatalf("Days = %d, want 1", r.Days())
	}
}

func TestDayJSON(t *testing.T) {
	var payload struct {
		Day Day `json:"day"`
	}
	if err := json.Unmarshal([]byte(`{"day":"2024-02-29"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"day":"2024-02-29"}` {
		t.Fatalf("marshal = %s", out)
	}
}

func TestGroupDays(t *testing.T) {
	days := []Day{
		MustDay("2024-01-09"), MustDay("2024-01-02"), MustDay("2024-01-03"),
		MustDay("2024-01-03"), MustDay("2024-01-01"), MustDay("2024-01-10"), MustDay("2024-01-05"),
	}
	got := GroupDays(days)
	want := []string{"2024-01-01..2024-01-03", "2024-01-05..2024-01-05", "2024-01-09..2024-01-10"}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("range %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGroupSingleDay(t *testing.T) {
	got := GroupDays([]Day{MustDay("2024-06-01")})
	if len(got) != 1 || got[0].String() != "2024-06-01..2024-06-01" {
		t.Fatalf("got %v", got)
	}
	if GroupDays(nil) != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestGroupTimesAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	times := []time.Time{
		time.Date(2024, 3, 30, 0, 0, 0, 0, loc),
		time.Date(2024, 3, 31, 0, 0, 0, 0, loc),
		time.Date(2024, 4, 1, 0, 0, 0, 0, loc),
	}
	got := GroupTimes(times)
	if len(got) != 1 || got[0].String() != "2024-03-30..2024-04-01" {
		t.Fatalf("got %v", got)
	}
}

func mustRange(t *testing.T, start, end string) Range {
	t.Helper()
	r, err := Parse(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}
