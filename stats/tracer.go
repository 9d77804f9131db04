// Package stats turns the state histories of line components into
// utilization, energy and throughput figures.
package stats

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// An Interval is a stretch of time a component spent in one state.
type Interval struct {
	State stateful.State
	Start sim.VTimeInSec
	End   sim.VTimeInSec
}

// Duration returns the length of the interval.
func (i Interval) Duration() sim.VTimeInSec {
	return i.End - i.Start
}

type series struct {
	closed  []Interval
	current stateful.State
	since   sim.VTimeInSec
}

// A Tracer records the time series of state intervals of the state machines
// it watches.
type Tracer struct {
	timeTeller sim.TimeTeller
	series     map[string]*series
	order      []string
}

// NewTracer creates a Tracer.
func NewTracer(timeTeller sim.TimeTeller) *Tracer {
	return &Tracer{
		timeTeller: timeTeller,
		series:     make(map[string]*series),
	}
}

// Watch starts recording the state changes of m.
func (t *Tracer) Watch(m *stateful.StateMachine) {
	if _, found := t.series[m.Name()]; found {
		return
	}

	t.series[m.Name()] = &series{
		current: m.Current(),
		since:   t.timeTeller.CurrentTime(),
	}
	t.order = append(t.order, m.Name())

	m.AcceptHook(t)
}

// Func records a state change.
func (t *Tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != stateful.HookPosStateChange {
		return
	}

	change := ctx.Item.(stateful.StateChange)

	s, found := t.series[change.Component]
	if !found {
		return
	}

	s.closed = append(s.closed, Interval{
		State: s.current,
		Start: s.since,
		End:   change.Time,
	})
	s.current = change.To
	s.since = change.Time
}

// Components returns the names of the watched components in the order they
// were added.
func (t *Tracer) Components() []string {
	return append([]string(nil), t.order...)
}

// Intervals returns the state intervals of a component up to now. The last
// interval is the one still open.
func (t *Tracer) Intervals(component string) []Interval {
	s, found := t.series[component]
	if !found {
		return nil
	}

	intervals := append([]Interval(nil), s.closed...)

	now := t.timeTeller.CurrentTime()
	if now > s.since {
		intervals = append(intervals, Interval{
			State: s.current,
			Start: s.since,
			End:   now,
		})
	}

	return intervals
}

// DwellTimes sums the intervals of a component per state.
func (t *Tracer) DwellTimes(component string) map[stateful.State]sim.VTimeInSec {
	dwell := make(map[stateful.State]sim.VTimeInSec)
	for _, i := range t.Intervals(component) {
		dwell[i.State] += i.Duration()
	}

	return dwell
}
