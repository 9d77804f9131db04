package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// The states of sources, sinks, loaders and downloaders.
const (
	StateWaiting stateful.State = "waiting"
	StateBlocked stateful.State = "blocked"
)

// A Source creates PCBs of one type, single or stacked, and puts them into its
// output every delay ticks. It blocks while the output is full.
type Source struct {
	name      string
	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	output    *Store
	ids       sim.IDGenerator
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec
	pcbType   int
	stackSize int

	created int
}

// SourceBuilder builds sources.
type SourceBuilder struct {
	engine    sim.Engine
	output    *Store
	ids       sim.IDGenerator
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec
	pcbType   int
	stackSize int
}

// MakeSourceBuilder creates a SourceBuilder for single type 1 PCBs.
func MakeSourceBuilder() SourceBuilder {
	return SourceBuilder{pcbType: 1, stackSize: 1}
}

// WithEngine sets the engine the source runs on.
func (b SourceBuilder) WithEngine(e sim.Engine) SourceBuilder {
	b.engine = e
	return b
}

// WithOutput sets the store the source puts PCBs into.
func (b SourceBuilder) WithOutput(s *Store) SourceBuilder {
	b.output = s
	return b
}

// WithIDGenerator sets how PCB IDs are generated.
func (b SourceBuilder) WithIDGenerator(g sim.IDGenerator) SourceBuilder {
	b.ids = g
	return b
}

// WithStartTime sets when the first PCB is created.
func (b SourceBuilder) WithStartTime(t sim.VTimeInSec) SourceBuilder {
	b.startTime = t
	return b
}

// WithDelay sets the time between the end of one put and the next creation.
func (b SourceBuilder) WithDelay(d sim.VTimeInSec) SourceBuilder {
	b.delay = d
	return b
}

// WithPCBType sets the type of the PCBs created.
func (b SourceBuilder) WithPCBType(t int) SourceBuilder {
	b.pcbType = t
	return b
}

// WithStackSize makes the source create stacks of n PCBs. A size of 1
// creates single PCBs.
func (b SourceBuilder) WithStackSize(n int) SourceBuilder {
	b.stackSize = n
	return b
}

// Build creates the source and starts its process.
func (b SourceBuilder) Build(name string) *Source {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.output == nil {
		panic(sim.NewConfigurationError(name, "output must be set"))
	}

	if b.delay < 0 || b.startTime < 0 {
		panic(sim.NewConfigurationError(name,
			"delay and start time must not be negative"))
	}

	if b.stackSize < 1 || b.pcbType < 1 {
		panic(sim.NewConfigurationError(name,
			"stack size and PCB type must be at least 1"))
	}

	ids := b.ids
	if ids == nil {
		ids = sim.NewSequentialIDGenerator()
	}

	s := &Source{
		name:      name,
		engine:    b.engine,
		output:    b.output,
		ids:       ids,
		startTime: b.startTime,
		delay:     b.delay,
		pcbType:   b.pcbType,
		stackSize: b.stackSize,
		states: stateful.MakeBuilder().
			WithStates(StateWaiting, StateBlocked).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	s.proc = sim.NewProcess(b.engine, name, s.behavior)

	return s
}

// Name returns the name of the source.
func (s *Source) Name() string {
	return s.name
}

// StateMachine returns the state machine of the source.
func (s *Source) StateMachine() *stateful.StateMachine {
	return s.states
}

// Created returns the number of PCBs created.
func (s *Source) Created() int {
	return s.created
}

func (s *Source) behavior(p *sim.Process) {
	p.Wait(s.startTime)

	for {
		item := s.create(p.Now())

		s.states.ChangeState(p.Now(), StateBlocked)
		s.output.Put(p, item)
		s.states.ChangeState(p.Now(), StateWaiting)
		logf(p.Now(), s.name, "output %v to %s", item, s.output.Name())

		p.Wait(s.delay)
	}
}

func (s *Source) create(now sim.VTimeInSec) Item {
	if s.stackSize == 1 {
		s.created++
		return NewPCB(s.ids.Generate(), s.pcbType, 0, now)
	}

	pcbs := make([]*PCB, s.stackSize)
	for i := range pcbs {
		pcbs[i] = NewPCB(s.ids.Generate(), s.pcbType, i, now)
	}

	s.created += s.stackSize

	return NewStack(s.ids.Generate(), pcbs, now)
}
