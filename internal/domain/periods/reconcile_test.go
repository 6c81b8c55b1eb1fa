package periods

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const testListing = listings.ListingID("listing-1")

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type sliceRepo struct {
	rows    []Period
	nextID  int
	finds   int
	applies int
}

func (r *sliceRepo) Find(_ context.Context, f Filter) ([]Period, error) {
	r.finds++
	var out []Period
	for _, p := range r.rows {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	SortByStart(out)
	return out, nil
}

func (r *sliceRepo) Apply(_ context.Context, cs Changeset) ([]Period, error) {
	r.applies++
	if err := cs.Check(); err != nil {
		return nil, err
	}
	inserted := make([]Period, 0, len(cs.Inserts))
	for _, p := range cs.Inserts {
		r.nextID++
		p.ID = PeriodID(fmt.Sprintf("p%d", r.nextID))
		inserted = append(inserted, p)
	}
	r.rows = ApplyChangeset(r.rows, Changeset{Table: cs.Table, ListingID: cs.ListingID, Deletes: cs.Deletes, Inserts: inserted})
	return inserted, nil
}

func (r *sliceRepo) seed(t *testing.T, rate Rate, ranges ...string) {
	t.Helper()
	for i := 0; i+1 < len(ranges); i += 2 {
		r.nextID++
		r.rows = append(r.rows, Period{
			ID:        PeriodID(fmt.Sprintf("seed%d", r.nextID)),
			ListingID: testListing,
			Range:     mustRange(t, ranges[i], ranges[i+1]),
			Rate:      rate,
		})
	}
}

func mustRange(t *testing.T, start, end string) daterange.Range {
	t.Helper()
	r, err := daterange.Parse(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return r
}

func reconcile(t *testing.T, repo *sliceRepo, plan Planner, ranges ...daterange.Range) Result {
	t.Helper()
	res, err := Reconcile(context.Background(), repo, testListing, ranges, plan)
	if err != nil {
		t.Fatalf("reconcile %s: %v", plan.Op, err)
	}
	return res
}

func assertPeriods(t *testing.T, got []Period, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d periods %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("period %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	repo := &sliceRepo{}
	target := mustRange(t, "2024-01-01", "2024-01-05")

	first := reconcile(t, repo, Open(testListing, testNow), target)
	assertPeriods(t, first.Periods, "2024-01-01..2024-01-05")

	applies := repo.applies
	second := reconcile(t, repo, Open(testListing, testNow), target)
	assertPeriods(t, second.Periods, "2024-01-01..2024-01-05")
	if repo.applies != applies {
		t.Fatalf("reopening an open range should not write, applies %d -> %d", applies, repo.applies)
	}
	if second.Deleted != 0 || second.Inserted != 0 {
		t.Fatalf("counts = %d/%d, want 0/0", second.Deleted, second.Inserted)
	}
}

func TestOpenMergesBridgedPeriods(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 0, "2024-01-01", "2024-01-05", "2024-01-08", "2024-01-10")

	res := reconcile(t, repo, Open(testListing, testNow), mustRange(t, "2024-01-06", "2024-01-07"))
	assertPeriods(t, res.Periods, "2024-01-01..2024-01-10")
	if res.Deleted != 2 || res.Inserted != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", res.Deleted, res.Inserted)
	}
}

func TestOpenMergesAdjacentButNotGapped(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 0, "2024-01-01", "2024-01-03", "2024-01-10", "2024-01-12")

	res := reconcile(t, repo, Open(testListing, testNow), mustRange(t, "2024-01-04", "2024-01-08"))
	assertPeriods(t, res.Periods, "2024-01-01..2024-01-08", "2024-01-10..2024-01-12")
}

func TestOpenInsideExistingIsNoop(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 0, "2024-01-01", "2024-01-31")

	res := reconcile(t, repo, Open(testListing, testNow), mustRange(t, "2024-01-10", "2024-01-12"))
	assertPeriods(t, res.Periods, "2024-01-01..2024-01-31")
	if repo.applies != 0 {
		t.Fatalf("applies = %d, want 0", repo.applies)
	}
}

func TestCloseSplitsPeriod(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 0, "2024-01-01", "2024-01-10")

	res := reconcile(t, repo, Close(testListing, testNow), mustRange(t, "2024-01-04", "2024-01-06"))
	assertPeriods(t, res.Periods, "2024-01-01..2024-01-03", "2024-01-07..2024-01-10")
}

func TestCloseEdgesAndFullCover(t *testing.T) {
	tests := []struct {
		name  string
		close [2]string
		want  []string
	}{
		{"start edge", [2]string{"2024-01-01", "2024-01-02"}, []string{"2024-01-03..2024-01-10"}},
		{"end edge", [2]string{"2024-01-09", "2024-01-12"}, []string{"2024-01-01..2024-01-08"}},
		{"full cover", [2]string{"2023-12-31", "2024-01-10"}, nil},
		{"outside", [2]string{"2024-01-11", "2024-01-15"}, []string{"2024-01-01..2024-01-10"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &sliceRepo{}
			repo.seed(t, 0, "2024-01-01", "2024-01-10")
			res := reconcile(t, repo, Close(testListing, testNow), mustRange(t, tc.close[0], tc.close[1]))
			assertPeriods(t, res.Periods, tc.want...)
		})
	}
}

func TestApplyRateMergesSameRate(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-02-01", "2024-02-03")

	res := reconcile(t, repo, ApplyRate(testListing, 100, testNow), mustRange(t, "2024-02-04", "2024-02-07"))
	assertPeriods(t, res.Periods, "2024-02-01..2024-02-07@100")
}

func TestApplyRateOverridesMiddle(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-03-01", "2024-03-10")

	res := reconcile(t, repo, ApplyRate(testListing, 150, testNow), mustRange(t, "2024-03-04", "2024-03-06"))
	assertPeriods(t, res.Periods,
		"2024-03-01..2024-03-03@100",
		"2024-03-04..2024-03-06@150",
		"2024-03-07..2024-03-10@100",
	)
}

func TestApplyRateLeavesAdjacentDifferentRate(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-03-01", "2024-03-03")

	res := reconcile(t, repo, ApplyRate(testListing, 150, testNow), mustRange(t, "2024-03-04", "2024-03-06"))
	assertPeriods(t, res.Periods, "2024-03-01..2024-03-03@100", "2024-03-04..2024-03-06@150")
}

func TestApplyRateFullOverride(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-03-02", "2024-03-03")
	repo.seed(t, 120, "2024-03-05", "2024-03-06")

	res := reconcile(t, repo, ApplyRate(testListing, 90, testNow), mustRange(t, "2024-03-01", "2024-03-10"))
	assertPeriods(t, res.Periods, "2024-03-01..2024-03-10@90")
}

func TestApplyRateRestoresSplitRate(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-03-01", "2024-03-10")
	reconcile(t, repo, ApplyRate(testListing, 150, testNow), mustRange(t, "2024-03-04", "2024-03-06"))

	res := reconcile(t, repo, ApplyRate(testListing, 100, testNow), mustRange(t, "2024-03-04", "2024-03-06"))
	assertPeriods(t, res.Periods, "2024-03-01..2024-03-10@100")
}

func TestResetRateKeepsRemainderRates(t *testing.T) {
	repo := &sliceRepo{}
	repo.seed(t, 100, "2024-04-01", "2024-04-05")
	repo.seed(t, 130, "2024-04-06", "2024-04-10")

	res := reconcile(t, repo, ResetRate(testListing, testNow), mustRange(t, "2024-04-04", "2024-04-07"))
	assertPeriods(t, res.Periods, "2024-04-01..2024-04-03@100", "2024-04-08..2024-04-10@130")
}

func TestRangesReconcileInOrder(t *testing.T) {
	repo := &sliceRepo{}
	days := []daterange.Day{
		daterange.MustDay("2024-05-01"), daterange.MustDay("2024-05-02"),
		daterange.MustDay("2024-05-04"), daterange.MustDay("2024-05-03"),
		daterange.MustDay("2024-05-10"),
	}
	res := reconcile(t, repo, Open(testListing, testNow), daterange.GroupDays(days)...)
	assertPeriods(t, res.Periods, "2024-05-01..2024-05-04", "2024-05-10..2024-05-10")
}

func TestRateValidationBoundaries(t *testing.T) {
	for _, raw := range []string{"0", "32768", "abc", "-5", ""} {
		t.Run(raw, func(t *testing.T) {
			if _, err := ParseRate(raw); !errors.Is(err, ErrInvalidRate) {
				t.Fatalf("ParseRate(%q) err = %v, want ErrInvalidRate", raw, err)
			}
		})
	}
	for _, raw := range []string{"1", "32767", " 250 "} {
		if _, err := ParseRate(raw); err != nil {
			t.Errorf("ParseRate(%q): %v", raw, err)
		}
	}

	for _, rate := range []Rate{0, 32768} {
		repo := &sliceRepo{}
		_, err := Reconcile(context.Background(), repo, testListing,
			[]daterange.Range{mustRange(t, "2024-01-01", "2024-01-02")}, ApplyRate(testListing, rate, testNow))
		if !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate %d err = %v, want ErrInvalidRate", rate, err)
		}
		if repo.finds != 0 || repo.applies != 0 {
			t.Fatalf("rate %d touched the store: finds=%d applies=%d", rate, repo.finds, repo.applies)
		}
	}
}

func TestReconcileRejectsEmptyInput(t *testing.T) {
	repo := &sliceRepo{}
	if _, err := Reconcile(context.Background(), repo, testListing, nil, Open(testListing, testNow)); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("err = %v, want ErrEmptySelection", err)
	}
	if _, err := Reconcile(context.Background(), repo, "", []daterange.Range{mustRange(t, "2024-01-01", "2024-01-01")}, Open("", testNow)); !errors.Is(err, ErrListingIDRequired) {
		t.Fatalf("err = %v, want ErrListingIDRequired", err)
	}
	inverted := daterange.Range{Start: daterange.MustDay("2024-01-05"), End: daterange.MustDay("2024-01-01")}
	if _, err := Reconcile(context.Background(), repo, testListing, []daterange.Range{inverted}, Open(testListing, testNow)); !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestReconcileIgnoresOtherListings(t *testing.T) {
	repo := &sliceRepo{}
	repo.rows = append(repo.rows, Period{ID: "other", ListingID: "listing-2", Range: mustRange(t, "2024-01-01", "2024-01-10")})

	res := reconcile(t, repo, Close(testListing, testNow), mustRange(t, "2024-01-01", "2024-01-10"))
	if len(res.Periods) != 0 {
		t.Fatalf("periods = %v, want none", res.Periods)
	}
	if len(repo.rows) != 1 || repo.rows[0].ID != "other" {
		t.Fatalf("foreign listing row changed: %v", repo.rows)
	}
}

func TestCheckInvariantsDetectsOverlap(t *testing.T) {
	rows := []Period{
		{ListingID: testListing, Range: mustRange(t, "2024-01-01", "2024-01-05"), Rate: 100},
		{ListingID: testListing, Range: mustRange(t, "2024-01-05", "2024-01-06"), Rate: 120},
	}
	if err := CheckInvariants(TableRates, rows); !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("err = %v, want ErrInvariantViolated", err)
	}
	adjacent := []Period{
		{ListingID: testListing, Range: mustRange(t, "2024-01-01", "2024-01-05")},
		{ListingID: testListing, Range: mustRange(t, "2024-01-06", "2024-01-06")},
	}
	if err := CheckInvariants(TableOpenDates, adjacent); !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("adjacent open periods err = %v, want ErrInvariantViolated", err)
	}
	if err := CheckInvariants(TableRates, adjacent[:1]); !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("zero rate err = %v, want ErrInvariantViolated", err)
	}
}

// Random operation sequences are checked against a per-day model of the
// calendar.
func TestRandomSequencesStayCanonical(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	origin := daterange.MustDay("2024-01-01")
	const horizon = 60
	rates := []Rate{100, 120, 150}

	for round := 0; round < 20; round++ {
		openRepo, rateRepo := &sliceRepo{}, &sliceRepo{}
		open := make(map[daterange.Day]bool)
		priced := make(map[daterange.Day]Rate)

		for step := 0; step < 40; step++ {
			start := origin.AddDays(rng.Intn(horizon))
			r := daterange.Range{Start: start, End: start.AddDays(rng.Intn(10))}
			rate := rates[rng.Intn(len(rates))]

			var res Result
			var err error
			switch op := rng.Intn(4); op {
			case 0:
				res, err = Reconcile(context.Background(), openRepo, testListing, []daterange.Range{r}, Open(testListing, testNow))
				r.EachDay(func(d daterange.Day) { open[d] = true })
			case 1:
				res, err = Reconcile(context.Background(), openRepo, testListing, []daterange.Range{r}, Close(testListing, testNow))
				r.EachDay(func(d daterange.Day) { delete(open, d) })
			case 2:
				res, err = Reconcile(context.Background(), rateRepo, testListing, []daterange.Range{r}, ApplyRate(testListing, rate, testNow))
				r.EachDay(func(d daterange.Day) { priced[d] = rate })
			default:
				res, err = Reconcile(context.Background(), rateRepo, testListing, []daterange.Range{r}, ResetRate(testListing, testNow))
				r.EachDay(func(d daterange.Day) { delete(priced, d) })
			}
			if err != nil {
				t.Fatalf("round %d step %d on %s: %v", round, step, r, err)
			}
			if err := CheckInvariants(res.Table, res.Periods); err != nil {
				t.Fatalf("round %d step %d: %v", round, step, err)
			}
		}

		gotOpen := make(map[daterange.Day]bool)
		for _, p := range openRepo.rows {
			p.Range.EachDay(func(d daterange.Day) { gotOpen[d] = true })
		}
		if len(gotOpen) != len(open) {
			t.Fatalf("round %d: %d open days, model has %d", round, len(gotOpen), len(open))
		}
		for d := range open {
			if !gotOpen[d] {
				t.Fatalf("round %d: day %s should be open", round, d)
			}
		}

		gotRates := make(map[daterange.Day]Rate)
		for _, p := range rateRepo.rows {
			p.Range.EachDay(func(d daterange.Day) { gotRates[d] = p.Rate })
		}
		if len(gotRates) != len(priced) {
			t.Fatalf("round %d: %d priced days, model has %d", round, len(gotRates), len(priced))
		}
		for d, want := range priced {
			if gotRates[d] != want {
				t.Fatalf("round %d: day %s rate %d, want %d", round, d, gotRates[d], want)
			}
		}
	}
}
