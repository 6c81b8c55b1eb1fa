package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/wiring"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/infra/storage/memory"
	"rentcal/internal/infra/validation"
)

func newBuses(t *testing.T) (wiring.Buses, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	buses := wiring.Build(wiring.Deps{
		Factory:   memory.Factory{Store: store},
		Validator: validation.New(),
		Now:       func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	return buses, store
}

func reconcile(t *testing.T, bus commands.Bus, cmd calendarapp.ReconcileCommand) (*dto.PeriodList, error) {
	t.Helper()
	cmd.ListingID = "l1"
	return commands.Dispatch[calendarapp.ReconcileCommand, *dto.PeriodList](context.Background(), bus, cmd)
}

func days(ss ...string) []daterange.Day {
	out := make([]daterange.Day, 0, len(ss))
	for _, s := range ss {
		out = append(out, daterange.MustDay(s))
	}
	return out
}

func TestReconcileRecordsOneEventPerChange(t *testing.T) {
	buses, store := newBuses(t)

	res, err := reconcile(t, buses.Commands, calendarapp.ReconcileCommand{
		Operation: periods.OpOpen,
		Dates:     days("2024-06-10", "2024-06-11", "2024-06-12", "2024-06-20"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(res.Periods) != 2 || res.Inserted != 2 {
		t.Fatalf("result = %+v", res)
	}
	if store.Outbox.Pending() != 1 {
		t.Fatalf("outbox = %d, want 1", store.Outbox.Pending())
	}

	again, err := reconcile(t, buses.Commands, calendarapp.ReconcileCommand{
		Operation: periods.OpOpen,
		Dates:     days("2024-06-11"),
	})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.Deleted+again.Inserted != 0 {
		t.Fatalf("reopen changed rows: %+v", again)
	}
	if store.Outbox.Pending() != 1 {
		t.Fatalf("no-op recorded an event: %d", store.Outbox.Pending())
	}
}

func TestReconcileRejectsBadInput(t *testing.T) {
	buses, store := newBuses(t)
	tests := []struct {
		name string
		cmd  calendarapp.ReconcileCommand
		want error
	}{
		{"empty selection", calendarapp.ReconcileCommand{Operation: periods.OpClose}, periods.ErrEmptySelection},
		{"bad rate", calendarapp.ReconcileCommand{Operation: periods.OpApplyRate, Dates: days("2024-06-10"), RawRate: "12.5"}, periods.ErrInvalidRate},
		{"zero rate", calendarapp.ReconcileCommand{Operation: periods.OpApplyRate, Dates: days("2024-06-10"), RawRate: "0"}, periods.ErrInvalidRate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := reconcile(t, buses.Commands, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if store.Outbox.Pending() != 0 {
		t.Fatalf("rejected commands left events: %d", store.Outbox.Pending())
	}
}

func TestRatesAndCalendarView(t *testing.T) {
	buses, _ := newBuses(t)
	ctx := context.Background()

	if _, err := commands.Dispatch[calendarapp.SaveSettingsCommand, *dto.Settings](ctx, buses.Commands, calendarapp.SaveSettingsCommand{
		ListingID: "l1",
		Payload:   domainlistings.SettingsParams{BaseRate: 100, GapDays: 1},
	}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	if _, err := reconcile(t, buses.Commands, calendarapp.ReconcileCommand{
		Operation: periods.OpOpen,
		Ranges:    []daterange.Range{{Start: daterange.MustDay("2024-06-01"), End: daterange.MustDay("2024-06-30")}},
	}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := reconcile(t, buses.Commands, calendarapp.ReconcileCommand{
		Operation: periods.OpApplyRate,
		Dates:     days("2024-06-05", "2024-06-06"),
		RawRate:   "150",
	}); err != nil {
		t.Fatalf("apply rate: %v", err)
	}

	rates, err := queries.Ask[calendarapp.ListPeriodsQuery, dto.PeriodList](ctx, buses.Queries, calendarapp.ListPeriodsQuery{ListingID: "l1", Table: periods.TableRates})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if len(rates.Periods) != 1 || rates.Periods[0].Rate != 150 || rates.Periods[0].EndDate != "2024-06-06" {
		t.Fatalf("rates = %+v", rates.Periods)
	}

	cal, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](ctx, buses.Queries, calendarapp.GetCalendarQuery{
		ListingID: "l1",
		From:      daterange.MustDay("2024-06-04"),
		To:        daterange.MustDay("2024-06-07"),
	})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	want := []int{100, 150, 150, 100}
	if len(cal.Days) != len(want) {
		t.Fatalf("days = %d", len(cal.Days))
	}
	for i, d := range cal.Days {
		if !d.Open || d.Rate != want[i] {
			t.Fatalf("day %s = %+v, want open at %d", d.Date, d, want[i])
		}
	}
}

func TestProjectBookingUpsertAndCancel(t *testing.T) {
	buses, _ := newBuses(t)
	ctx := context.Background()
	booking := domainlistings.Booking{
		ID:        "b1",
		ListingID: "l1",
		CheckIn:   daterange.MustDay("2024-06-10"),
		CheckOut:  daterange.MustDay("2024-06-12"),
	}

	project := func(cmd calendarapp.ProjectBookingCommand) error {
		_, err := commands.Dispatch[calendarapp.ProjectBookingCommand, struct{}](ctx, buses.Commands, cmd)
		return err
	}
	at := func() error {
		_, err := queries.Ask[calendarapp.BookingAtQuery, dto.Booking](ctx, buses.Queries, calendarapp.BookingAtQuery{ListingID: "l1", Date: daterange.MustDay("2024-06-11")})
		return err
	}

	if err := project(calendarapp.ProjectBookingCommand{Booking: booking}); err != nil {
		t.Fatalf("project: %v", err)
	}
	if err := at(); err != nil {
		t.Fatalf("booking at: %v", err)
	}
	cancel := calendarapp.ProjectBookingCommand{Booking: domainlistings.Booking{ID: "b1", ListingID: "l1"}, Cancelled: true}
	if err := project(cancel); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := at(); !errors.Is(err, domainlistings.ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
	if err := project(calendarapp.ProjectBookingCommand{Booking: domainlistings.Booking{ID: "b2"}}); !errors.Is(err, calendarapp.ErrInvalidBookingEvent) {
		t.Fatalf("err = %v, want ErrInvalidBookingEvent", err)
	}
}
