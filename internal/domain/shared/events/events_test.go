package events

import (
	"testing"
	"time"
)

type named string

func (n named) EventName() string     { return string(n) }
func (n named) AggregateID() string   { return "l1" }
func (n named) OccurredAt() time.Time { return time.Time{} }

func TestRecorderDrain(t *testing.T) {
	var r Recorder
	r.Record(named("a"))
	r.Record(nil)
	r.Record(named("b"))

	got := r.Drain()
	if len(got) != 2 || got[0].EventName() != "a" || got[1].EventName() != "b" {
		t.Fatalf("drained %v", got)
	}
	if again := r.Drain(); len(again) != 0 {
		t.Fatalf("second drain = %v", again)
	}
}
