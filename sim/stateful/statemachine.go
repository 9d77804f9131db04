// Package stateful provides the state machines that line components use to
// account for the time they spend in each state and the energy they draw.
package stateful

import (
	"sort"

	"github.com/smtline/smtline/sim"
)

// HookPosStateChange marks when a state machine switches states. The hook
// item is a StateChange.
var HookPosStateChange = &sim.HookPos{Name: "State Change"}

// A State is the name of a state, such as "idle" or "busy".
type State string

// A StateChange describes one transition of a state machine.
type StateChange struct {
	Component string
	From      State
	To        State
	Time      sim.VTimeInSec
}

// A StateMachine keeps the current state of a component and the time it has
// spent in every state. Each state may carry a power rating in watts.
type StateMachine struct {
	sim.HookableBase

	name       string
	states     []State
	power      map[State]float64
	current    State
	checkpoint sim.VTimeInSec
	dwell      map[State]sim.VTimeInSec
}

// Builder builds state machines.
type Builder struct {
	states    []State
	power     map[State]float64
	initState State
	startTime sim.VTimeInSec
}

// MakeBuilder creates a Builder.
func MakeBuilder() Builder {
	return Builder{power: make(map[State]float64)}
}

// WithStates sets the states the machine can be in. The first state is the
// initial state unless WithInitialState says otherwise.
func (b Builder) WithStates(states ...State) Builder {
	b.states = append([]State(nil), states...)
	return b
}

// WithInitialState sets the state at the start time.
func (b Builder) WithInitialState(s State) Builder {
	b.initState = s
	return b
}

// WithPower sets the power rating of a state in watts.
func (b Builder) WithPower(s State, watts float64) Builder {
	power := make(map[State]float64, len(b.power)+1)
	for k, v := range b.power {
		power[k] = v
	}

	power[s] = watts
	b.power = power

	return b
}

// WithPowerTable sets the power ratings of several states at once.
func (b Builder) WithPowerTable(table map[State]float64) Builder {
	for s, w := range table {
		b = b.WithPower(s, w)
	}

	return b
}

// WithStartTime sets the time from which dwell times are counted.
func (b Builder) WithStartTime(t sim.VTimeInSec) Builder {
	b.startTime = t
	return b
}

// Build creates a state machine. It panics with a ConfigurationError if no
// state is given, or if the initial state or a power rating names an unknown
// state.
func (b Builder) Build(name string) *StateMachine {
	if len(b.states) == 0 {
		panic(sim.NewConfigurationError(name, "no states"))
	}

	m := &StateMachine{
		name:       name,
		states:     b.states,
		power:      make(map[State]float64),
		current:    b.states[0],
		checkpoint: b.startTime,
		dwell:      make(map[State]sim.VTimeInSec),
	}

	if b.initState != "" {
		m.mustBeKnown(b.initState, true)
		m.current = b.initState
	}

	for s, w := range b.power {
		m.mustBeKnown(s, true)

		if w < 0 {
			panic(sim.NewConfigurationError(name,
				"negative power %g for state %s", w, s))
		}

		m.power[s] = w
	}

	for _, s := range m.states {
		m.dwell[s] = 0
	}

	return m
}

// Name returns the name of the component the machine belongs to.
func (m *StateMachine) Name() string {
	return m.name
}

// States returns all the states in the order they were declared.
func (m *StateMachine) States() []State {
	return append([]State(nil), m.states...)
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	return m.current
}

// Checkpoint returns the time up to which dwell times are booked.
func (m *StateMachine) Checkpoint() sim.VTimeInSec {
	return m.checkpoint
}

// Is tells whether the machine is in state s.
func (m *StateMachine) Is(s State) bool {
	return m.current == s
}

// Power returns the power rating of state s in watts.
func (m *StateMachine) Power(s State) float64 {
	return m.power[s]
}

// PowerTable returns a copy of the power ratings.
func (m *StateMachine) PowerTable() map[State]float64 {
	table := make(map[State]float64, len(m.power))
	for s, w := range m.power {
		table[s] = w
	}

	return table
}

// ChangeState books the time since the last change to the current state and
// switches to s. Changing to the current state only books the time.
func (m *StateMachine) ChangeState(now sim.VTimeInSec, s State) {
	m.mustBeKnown(s, false)

	if now < m.checkpoint {
		panic(sim.NewInvariantViolation(m.name,
			"state change at %.2f before last change at %.2f",
			now, m.checkpoint))
	}

	m.dwell[m.current] += now - m.checkpoint
	m.checkpoint = now

	if s == m.current {
		return
	}

	change := StateChange{
		Component: m.name,
		From:      m.current,
		To:        s,
		Time:      now,
	}
	m.current = s

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m,
			Now:    now,
			Pos:    HookPosStateChange,
			Item:   change,
		})
	}
}

// DwellTimes returns the time spent in every state up to now, including the
// time in the current state since the last change.
func (m *StateMachine) DwellTimes(now sim.VTimeInSec) map[State]sim.VTimeInSec {
	dwell := make(map[State]sim.VTimeInSec, len(m.dwell))
	for s, d := range m.dwell {
		dwell[s] = d
	}

	if now > m.checkpoint {
		dwell[m.current] += now - m.checkpoint
	}

	return dwell
}

// Energy returns the energy in joules drawn up to now.
func (m *StateMachine) Energy(now sim.VTimeInSec) float64 {
	total := 0.0
	for s, d := range m.DwellTimes(now) {
		total += float64(d) * m.power[s]
	}

	return total
}

// Snapshot returns a serializable view of the machine at now.
func (m *StateMachine) Snapshot(now sim.VTimeInSec) map[string]any {
	dwell := m.DwellTimes(now)

	names := make([]string, 0, len(dwell))
	for s := range dwell {
		names = append(names, string(s))
	}

	sort.Strings(names)

	dwellMap := make(map[string]float64, len(names))
	for _, s := range names {
		dwellMap[s] = float64(dwell[State(s)])
	}

	return map[string]any{
		"name":   m.name,
		"state":  string(m.current),
		"since":  float64(m.checkpoint),
		"dwell":  dwellMap,
		"energy": m.Energy(now),
	}
}

func (m *StateMachine) mustBeKnown(s State, building bool) {
	for _, known := range m.states {
		if known == s {
			return
		}
	}

	if building {
		panic(sim.NewConfigurationError(m.name, "unknown state %q", s))
	}

	panic(sim.NewInvariantViolation(m.name, "unknown state %q", s))
}
