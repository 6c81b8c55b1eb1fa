// Package selection tracks which calendar days a host has picked with a
// pointer. It knows nothing about periods; callers group Selected() into
// ranges and hand them to the reconciliation engine.
package selection

import (
	"sort"

	"rentcal/internal/domain/shared/daterange"
)

// DragThreshold is the pointer travel, in pixels, that turns a press into a drag.
const DragThreshold = 5.0

type State int

const (
	Idle State = iota
	Pressed
	Dragging
)

func (s State) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Machine is not safe for concurrent use.
type Machine struct {
	state    State
	anchor   daterange.Day
	travel   float64
	selected map[daterange.Day]bool
	// base is the selection as it was when the current drag started.
	base     map[daterange.Day]bool
	disabled func(daterange.Day) bool
}

// New returns an idle machine. disabled may be nil.
func New(disabled func(daterange.Day) bool) *Machine {
	if disabled == nil {
		disabled = func(daterange.Day) bool { return false }
	}
	return &Machine{selected: make(map[daterange.Day]bool), disabled: disabled}
}

func (m *Machine) State() State { return m.state }

// Press toggles day and arms a drag anchored on it.
func (m *Machine) Press(day daterange.Day) {
	if m.disabled(day) {
		return
	}
	if m.selected[day] {
		delete(m.selected, day)
	} else {
		m.selected[day] = true
	}
	m.anchor = day
	m.travel = 0
	m.state = Pressed
}

// Move reports the pointer over day after travelling dx, dy pixels.
func (m *Machine) Move(day daterange.Day, dx, dy float64) {
	switch m.state {
	case Idle:
		return
	case Pressed:
		m.travel += abs(dx) + abs(dy)
		if m.travel < DragThreshold {
			return
		}
		m.state = Dragging
		m.base = make(map[daterange.Day]bool, len(m.selected))
		for d := range m.selected {
			m.base[d] = true
		}
	}
	m.drag(day)
}

func (m *Machine) drag(to daterange.Day) {
	span := daterange.Range{Start: daterange.MinDay(m.anchor, to), End: daterange.MaxDay(m.anchor, to)}
	next := make(map[daterange.Day]bool, len(m.base)+span.Days())
	for d := range m.base {
		if !span.ContainsDay(d) {
			next[d] = true
		}
	}
	span.EachDay(func(d daterange.Day) {
		if !m.disabled(d) {
			next[d] = true
		}
	})
	m.selected = next
}

func (m *Machine) Release() { m.finish() }
func (m *Machine) Leave()   { m.finish() }

func (m *Machine) finish() {
	m.state = Idle
	m.base = nil
	m.travel = 0
}

// Clear drops the selection and returns to Idle.
func (m *Machine) Clear() {
	m.selected = make(map[daterange.Day]bool)
	m.finish()
}

// Selected returns the selected days in ascending order.
func (m *Machine) Selected() []daterange.Day {
	out := make([]daterange.Day, 0, len(m.selected))
	for d := range m.selected {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (m *Machine) Ranges() []daterange.Range {
	return daterange.GroupDays(m.Selected())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
