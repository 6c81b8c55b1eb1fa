package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

func mustRange(t *testing.T, start, end string) daterange.Range {
	t.Helper()
	r, err := daterange.Parse(start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return r
}

func TestRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := Factory{Store: store}
	now := time.Now()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := domainperiods.Reconcile(ctx, unit.OpenPeriods(), "l1",
		[]daterange.Range{mustRange(t, "2024-01-01", "2024-01-05")}, domainperiods.Open("l1", now)); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	unit, err = factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := domainperiods.Reconcile(ctx, unit.OpenPeriods(), "l1",
		[]daterange.Range{mustRange(t, "2024-01-02", "2024-01-03"), mustRange(t, "2024-01-10", "2024-01-12")},
		domainperiods.Close("l1", now)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "calendar.closed"}); err != nil {
		t.Fatalf("outbox add: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	reader, _ := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	rows, err := reader.OpenPeriods().Find(ctx, domainperiods.Filter{ListingID: "l1"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].Range.String() != "2024-01-01..2024-01-05" {
		t.Fatalf("rows after rollback = %v", rows)
	}
	if store.Outbox.Pending() != 0 {
		t.Fatalf("rolled back events reached the outbox")
	}
}

func TestCommitPublishesOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	unit, _ := Factory{Store: store}.Begin(ctx, uow.TxOptions{})
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "rates.applied", Payload: []byte(`{}`)})
	if store.Outbox.Pending() != 0 {
		t.Fatalf("event visible before commit")
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	msg, err := store.Outbox.Claim(ctx, "w")
	if err != nil || msg == nil || msg.ID != "e1" {
		t.Fatalf("claim = %v, %v", msg, err)
	}
	if again, _ := store.Outbox.Claim(ctx, "w"); again != nil {
		t.Fatalf("claimed message handed out twice")
	}
	_ = store.Outbox.MarkSent(ctx, "e1")
	if store.Outbox.Pending() != 0 {
		t.Fatalf("sent message kept")
	}
}

func TestWritersAreSerialized(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}
	first, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := factory.Begin(waitCtx, uow.TxOptions{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second writer err = %v, want deadline exceeded", err)
	}
	if _, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true}); err != nil {
		t.Fatalf("reader blocked by writer: %v", err)
	}
	_ = first.Rollback(ctx)
	second, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("writer after release: %v", err)
	}
	_ = second.Commit(ctx)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	ctx := context.Background()
	unit, _ := Factory{Store: NewStore()}.Begin(ctx, uow.TxOptions{ReadOnly: true})
	s, _ := domainlistings.NewSettings("l1", domainlistings.SettingsParams{BaseRate: 100}, time.Now())
	if err := unit.Settings().Save(ctx, s); !errors.Is(err, ErrReadOnlyUnit) {
		t.Fatalf("err = %v, want ErrReadOnlyUnit", err)
	}
}

func TestApplyRejectsUnknownDelete(t *testing.T) {
	ctx := context.Background()
	unit, _ := Factory{Store: NewStore()}.Begin(ctx, uow.TxOptions{})
	defer unit.Rollback(ctx)
	cs := domainperiods.Changeset{
		Table:     domainperiods.TableOpenDates,
		ListingID: "l1",
		Deletes:   []domainperiods.Period{{ID: "ghost", ListingID: "l1", Range: mustRange(t, "2024-01-01", "2024-01-01")}},
	}
	if _, err := unit.OpenPeriods().Apply(ctx, cs); !errors.Is(err, domainperiods.ErrPeriodNotFound) {
		t.Fatalf("err = %v, want ErrPeriodNotFound", err)
	}
}

func TestBookingsByWindow(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}
	unit, _ := factory.Begin(ctx, uow.TxOptions{})
	for _, b := range []domainlistings.Booking{
		{ID: "b2", ListingID: "l1", CheckIn: daterange.MustDay("2024-07-10"), CheckOut: daterange.MustDay("2024-07-12")},
		{ID: "b1", ListingID: "l1", CheckIn: daterange.MustDay("2024-07-01"), CheckOut: daterange.MustDay("2024-07-03")},
		{ID: "b3", ListingID: "l2", CheckIn: daterange.MustDay("2024-07-01"), CheckOut: daterange.MustDay("2024-07-03")},
	} {
		if err := unit.Bookings().Upsert(ctx, b); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	_ = unit.Commit(ctx)

	reader, _ := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	all, _ := reader.Bookings().ByListing(ctx, "l1", daterange.Range{})
	if len(all) != 2 || all[0].ID != "b1" {
		t.Fatalf("all = %v", all)
	}
	some, _ := reader.Bookings().ByListing(ctx, "l1", mustRange(t, "2024-07-11", "2024-07-20"))
	if len(some) != 1 || some[0].ID != "b2" {
		t.Fatalf("window = %v", some)
	}
}
