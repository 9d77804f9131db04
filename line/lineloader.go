package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// A LineLoader takes the PCBs off a stack one at a time and places them on
// the line. The empty tray leaves the input only after the last PCB.
type LineLoader struct {
	name      string
	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	input     *Store
	output    *Store
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec

	loaded int
}

// LineLoaderBuilder builds line loaders.
type LineLoaderBuilder struct {
	engine    sim.Engine
	input     *Store
	output    *Store
	startTime sim.VTimeInSec
	delay     sim.VTimeInSec
	power     map[stateful.State]float64
}

// MakeLineLoaderBuilder creates a LineLoaderBuilder.
func MakeLineLoaderBuilder() LineLoaderBuilder {
	return LineLoaderBuilder{}
}

// WithEngine sets the engine the loader runs on.
func (b LineLoaderBuilder) WithEngine(e sim.Engine) LineLoaderBuilder {
	b.engine = e
	return b
}

// WithInput sets the store the stacks arrive at.
func (b LineLoaderBuilder) WithInput(s *Store) LineLoaderBuilder {
	b.input = s
	return b
}

// WithOutput sets the store single PCBs are placed on.
func (b LineLoaderBuilder) WithOutput(s *Store) LineLoaderBuilder {
	b.output = s
	return b
}

// WithStartTime sets when the loader starts working.
func (b LineLoaderBuilder) WithStartTime(t sim.VTimeInSec) LineLoaderBuilder {
	b.startTime = t
	return b
}

// WithDelay sets the time to pick up and place one PCB.
func (b LineLoaderBuilder) WithDelay(d sim.VTimeInSec) LineLoaderBuilder {
	b.delay = d
	return b
}

// WithPowerTable sets the power ratings of the loader states.
func (b LineLoaderBuilder) WithPowerTable(
	table map[stateful.State]float64,
) LineLoaderBuilder {
	b.power = table
	return b
}

// Build creates the loader and starts its process.
func (b LineLoaderBuilder) Build(name string) *LineLoader {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.input == nil || b.output == nil {
		panic(sim.NewConfigurationError(name, "input and output must be set"))
	}

	if b.delay < 0 || b.startTime < 0 {
		panic(sim.NewConfigurationError(name,
			"delay and start time must not be negative"))
	}

	l := &LineLoader{
		name:      name,
		engine:    b.engine,
		input:     b.input,
		output:    b.output,
		startTime: b.startTime,
		delay:     b.delay,
		states: stateful.MakeBuilder().
			WithStates(StateIdle, StateBusy, StateWaitingToOutput).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	l.proc = sim.NewProcess(b.engine, name, l.behavior)

	return l
}

// Name returns the name of the loader.
func (l *LineLoader) Name() string {
	return l.name
}

// StateMachine returns the state machine of the loader.
func (l *LineLoader) StateMachine() *stateful.StateMachine {
	return l.states
}

// Loaded returns the number of PCBs placed on the line.
func (l *LineLoader) Loaded() int {
	return l.loaded
}

func (l *LineLoader) behavior(p *sim.Process) {
	p.Wait(l.startTime)

	for {
		l.states.ChangeState(p.Now(), StateIdle)
		p.WaitUntil(l.input.CanGet)

		item, _ := l.input.Peek()
		logf(p.Now(), l.name, "started unloading %v", item)

		stack, isStack := item.(*Stack)
		if !isStack {
			l.place(p, item)
			l.input.TryGet()

			continue
		}

		for {
			pcb, ok := stack.Pop()
			if !ok {
				break
			}

			l.place(p, pcb)
		}

		l.input.TryGet()
	}
}

func (l *LineLoader) place(p *sim.Process, item Item) {
	l.states.ChangeState(p.Now(), StateBusy)
	p.Wait(l.delay)

	l.states.ChangeState(p.Now(), StateWaitingToOutput)
	p.WaitUntil(l.output.CanPut)

	l.output.Push(item)
	l.loaded += item.Count()
	logf(p.Now(), l.name, "placed %v on %s", item, l.output.Name())
}
