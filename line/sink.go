package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// HookPosSinkConsume marks when a sink consumes an item. The hook item is the
// consumed Item.
var HookPosSinkConsume = &sim.HookPos{Name: "Sink Consume"}

// A Sink consumes finished PCBs. It counts them and keeps the running average
// of their cycle time, the time from creation to consumption.
type Sink struct {
	sim.HookableBase

	name      string
	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	input     *Store
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec

	count            int
	averageCycleTime sim.VTimeInSec
}

// SinkBuilder builds sinks.
type SinkBuilder struct {
	engine    sim.Engine
	input     *Store
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec
}

// MakeSinkBuilder creates a SinkBuilder.
func MakeSinkBuilder() SinkBuilder {
	return SinkBuilder{}
}

// WithEngine sets the engine the sink runs on.
func (b SinkBuilder) WithEngine(e sim.Engine) SinkBuilder {
	b.engine = e
	return b
}

// WithInput sets the store the sink consumes from.
func (b SinkBuilder) WithInput(s *Store) SinkBuilder {
	b.input = s
	return b
}

// WithStartTime sets when the sink starts consuming.
func (b SinkBuilder) WithStartTime(t sim.VTimeInSec) SinkBuilder {
	b.startTime = t
	return b
}

// WithDelay sets the pause after each consumed item.
func (b SinkBuilder) WithDelay(d sim.VTimeInSec) SinkBuilder {
	b.delay = d
	return b
}

// Build creates the sink and starts its process.
func (b SinkBuilder) Build(name string) *Sink {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.input == nil {
		panic(sim.NewConfigurationError(name, "input must be set"))
	}

	if b.delay < 0 || b.startTime < 0 {
		panic(sim.NewConfigurationError(name,
			"delay and start time must not be negative"))
	}

	s := &Sink{
		name:      name,
		engine:    b.engine,
		input:     b.input,
		startTime: b.startTime,
		delay:     b.delay,
		states: stateful.MakeBuilder().
			WithStates(StateWaiting, StateBusy).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	s.proc = sim.NewProcess(b.engine, name, s.behavior)

	return s
}

// Name returns the name of the sink.
func (s *Sink) Name() string {
	return s.name
}

// StateMachine returns the state machine of the sink.
func (s *Sink) StateMachine() *stateful.StateMachine {
	return s.states
}

// Count returns the number of PCBs consumed.
func (s *Sink) Count() int {
	return s.count
}

// AverageCycleTime returns the mean time the consumed PCBs spent in the line.
func (s *Sink) AverageCycleTime() sim.VTimeInSec {
	return s.averageCycleTime
}

func (s *Sink) behavior(p *sim.Process) {
	p.Wait(s.startTime)

	for {
		s.states.ChangeState(p.Now(), StateWaiting)
		item := s.input.Get(p)
		s.consume(p.Now(), item)

		if s.delay > 0 {
			s.states.ChangeState(p.Now(), StateBusy)
			p.Wait(s.delay)
		}
	}
}

func (s *Sink) consume(now sim.VTimeInSec, item Item) {
	n := item.Count()
	cycleTime := now - item.CreationTime()

	total := s.averageCycleTime*sim.VTimeInSec(s.count) +
		cycleTime*sim.VTimeInSec(n)
	s.count += n

	if s.count > 0 {
		s.averageCycleTime = total / sim.VTimeInSec(s.count)
	}

	logf(now, s.name, "consumed %v from %s", item, s.input.Name())

	if s.NumHooks() > 0 {
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Now:    now,
			Pos:    HookPosSinkConsume,
			Item:   item,
			Detail: cycleTime,
		})
	}
}
