package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"

	"rentcal/internal/app/commands"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/middleware"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

type fakeInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (f *fakeInbox) Seen(_ context.Context, id string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	was := f.seen[id]
	f.seen[id] = true
	return was, nil
}

func (f *fakeInbox) Forget(_ context.Context, id string) error {
	delete(f.seen, id)
	f.forgotten = append(f.forgotten, id)
	return nil
}

func event(id, typ, data string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"time":"2024-05-01T10:00:00Z","data":%s}`, id, typ, data))
}

const confirmedData = `{"id":"b1","listingId":"l1","checkIn":"2024-06-10","checkOut":"2024-06-14","guests":2,"finalTotal":480}`

func TestDecodeBookingEvent(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		wantErr   bool
		unknown   bool
		cancelled bool
	}{
		{name: "confirmed", body: event("e1", EventBookingConfirmed, confirmedData)},
		{name: "cancelled without dates", body: event("e2", EventBookingCancelled, `{"id":"b1","listingId":"l1"}`), cancelled: true},
		{name: "unknown type", body: event("e3", "booking.requested", confirmedData), wantErr: true, unknown: true},
		{name: "missing id", body: event("", EventBookingConfirmed, confirmedData), wantErr: true},
		{name: "bad dates", body: event("e4", EventBookingConfirmed, `{"id":"b1","listingId":"l1","checkIn":"2024-06-14","checkOut":"2024-06-10"}`), wantErr: true},
		{name: "not json", body: []byte("{"), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, cmd, err := DecodeBookingEvent(tc.body)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", cmd)
				}
				if errors.Is(err, errUnknownBookingEvent) != tc.unknown {
					t.Fatalf("unknown = %v for %v", !tc.unknown, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if id == "" || cmd.Booking.ID != "b1" || cmd.Booking.ListingID != "l1" || cmd.Cancelled != tc.cancelled {
				t.Fatalf("decoded %q %+v", id, cmd)
			}
			if !tc.cancelled && cmd.Booking.Stay().String() != "2024-06-10..2024-06-14" {
				t.Fatalf("stay = %s", cmd.Booking.Stay())
			}
			if cmd.Booking.UpdatedAt.IsZero() {
				t.Fatal("event time not carried over")
			}
		})
	}
}

func TestBookingHandlerSkipsDuplicates(t *testing.T) {
	var dispatched int
	bus := busFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		if _, ok := cmd.(calendarapp.ProjectBookingCommand); !ok {
			t.Fatalf("unexpected command %T", cmd)
		}
		dispatched++
		return struct{}{}, nil
	})
	inbox := &fakeInbox{}
	h := BookingHandler{Commands: bus, Inbox: inbox}
	msg := &sarama.ConsumerMessage{Value: event("e1", EventBookingConfirmed, confirmedData)}

	for i := 0; i < 2; i++ {
		if err := h.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if dispatched != 1 {
		t.Fatalf("dispatched %d times, want 1", dispatched)
	}
}

func TestBookingHandlerForgetsFailedEvents(t *testing.T) {
	boom := errors.New("boom")
	bus := busFunc(func(context.Context, commands.Command) (any, error) { return nil, boom })
	inbox := &fakeInbox{}
	h := BookingHandler{Commands: bus, Inbox: inbox}

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: event("e1", EventBookingConfirmed, confirmedData)})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(inbox.forgotten) != 1 || inbox.seen["e1"] {
		t.Fatalf("inbox not rolled back: %+v", inbox)
	}
}

func TestBookingHandlerIgnoresForeignEvents(t *testing.T) {
	bus := busFunc(func(context.Context, commands.Command) (any, error) {
		return nil, fmt.Errorf("%w: l9", middleware.ErrListingNotManaged)
	})
	h := BookingHandler{Commands: bus, Inbox: &fakeInbox{}}

	if err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: event("e1", EventBookingConfirmed, confirmedData)}); err != nil {
		t.Fatalf("foreign listing: %v", err)
	}
	if err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: event("e2", "booking.requested", confirmedData)}); err != nil {
		t.Fatalf("unknown type: %v", err)
	}
}
