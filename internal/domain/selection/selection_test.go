package selection

import (
	"testing"

	"rentcal/internal/domain/shared/daterange"
)

func d(s string) daterange.Day { return daterange.MustDay(s) }

func selectedStrings(m *Machine) []string {
	var out []string
	for _, day := range m.Selected() {
		out = append(out, day.String())
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPressTogglesDay(t *testing.T) {
	m := New(nil)
	m.Press(d("2024-01-03"))
	m.Release()
	m.Press(d("2024-01-05"))
	m.Release()
	if got := selectedStrings(m); !equal(got, []string{"2024-01-03", "2024-01-05"}) {
		t.Fatalf("selected = %v", got)
	}
	m.Press(d("2024-01-03"))
	m.Release()
	if got := selectedStrings(m); !equal(got, []string{"2024-01-05"}) {
		t.Fatalf("after toggle = %v", got)
	}
	if m.State() != Idle {
		t.Fatalf("state = %s, want idle", m.State())
	}
}

func TestSmallMoveStaysPressed(t *testing.T) {
	m := New(nil)
	m.Press(d("2024-01-03"))
	m.Move(d("2024-01-04"), 2, 1)
	if m.State() != Pressed {
		t.Fatalf("state = %s, want pressed", m.State())
	}
	if got := selectedStrings(m); !equal(got, []string{"2024-01-03"}) {
		t.Fatalf("selected = %v", got)
	}
}

func TestDragReplacesSpan(t *testing.T) {
	m := New(nil)
	m.Press(d("2024-01-20"))
	m.Release()

	m.Press(d("2024-01-03"))
	m.Move(d("2024-01-06"), 30, 0)
	if m.State() != Dragging {
		t.Fatalf("state = %s, want dragging", m.State())
	}
	// Dragging back shrinks the span.
	m.Move(d("2024-01-05"), -10, 0)
	m.Release()

	want := []string{"2024-01-03", "2024-01-04", "2024-01-05", "2024-01-20"}
	if got := selectedStrings(m); !equal(got, want) {
		t.Fatalf("selected = %v, want %v", got, want)
	}
	ranges := m.Ranges()
	if len(ranges) != 2 || ranges[0].String() != "2024-01-03..2024-01-05" {
		t.Fatalf("ranges = %v", ranges)
	}
}

func TestDragBackwardsAndDisabledDays(t *testing.T) {
	booked := d("2024-01-04")
	m := New(func(day daterange.Day) bool { return day.Equal(booked) })

	m.Press(booked)
	if m.State() != Idle || len(m.Selected()) != 0 {
		t.Fatalf("press on disabled day should be ignored")
	}

	m.Press(d("2024-01-06"))
	m.Move(d("2024-01-02"), 0, 8)
	m.Leave()
	want := []string{"2024-01-02", "2024-01-03", "2024-01-05", "2024-01-06"}
	if got := selectedStrings(m); !equal(got, want) {
		t.Fatalf("selected = %v, want %v", got, want)
	}
	if m.State() != Idle {
		t.Fatalf("leave should end the drag")
	}
}

func TestMoveWhileIdleIsIgnored(t *testing.T) {
	m := New(nil)
	m.Move(d("2024-01-02"), 50, 50)
	if m.State() != Idle || len(m.Selected()) != 0 {
		t.Fatalf("idle move changed state")
	}
	m.Press(d("2024-01-02"))
	m.Clear()
	if len(m.Selected()) != 0 || m.State() != Idle {
		t.Fatalf("clear kept selection")
	}
}
