package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

// The states of a conveyor belt.
const (
	BeltUnoccupied stateful.State = "unoccupied"
	BeltOccupied   stateful.State = "occupied"
	BeltStalled    stateful.State = "stalled"
)

// belt is the shift-register core shared by conveyors and reflow ovens. It
// steps at half-tick instants, so that it never races with the machines on
// either end, which act at integer instants.
type belt struct {
	name       string
	stages     *queueing.ShiftRegister[Item]
	input      *Store
	output     *Store
	delay      int
	sinceShift int
}

func newBelt(
	name string,
	numStage, delay int,
	input, output *Store,
) *belt {
	if delay < 1 {
		panic(sim.NewConfigurationError(name,
			"delay per stage must be at least 1, got %d", delay))
	}

	if input == nil || output == nil {
		panic(sim.NewConfigurationError(name, "input and output must be set"))
	}

	return &belt{
		name: name,
		stages: queueing.MakeShiftRegisterBuilder[Item]().
			WithNumStage(numStage).
			Build(sim.BuildName(name, "Stages")),
		input:      input,
		output:     output,
		delay:      delay,
		sinceShift: delay,
	}
}

// step drains the last stage, shifts if a shift is due and drains again.
// It reports whether the belt had to stall.
func (b *belt) step(now sim.VTimeInSec) (stalled bool) {
	b.drain(now)

	if b.sinceShift >= b.delay {
		if b.stages.LastOccupied() {
			stalled = true
		} else {
			b.stages.Shift()
			b.sinceShift = 0

			if item, ok := b.input.TryGet(); ok {
				b.stages.Load(item)
				logf(now, b.name, "picked up %v", item)
			}
		}
	}

	b.drain(now)
	b.sinceShift++

	return stalled
}

func (b *belt) drain(now sim.VTimeInSec) {
	if !b.stages.LastOccupied() || !b.output.CanPut() {
		return
	}

	item, _ := b.stages.Unload()
	b.output.Push(item)
	logf(now, b.name, "placed %v on %s", item, b.output.Name())
}

func (b *belt) empty() bool {
	return b.stages.Empty()
}

func (b *belt) resetShift() {
	b.sinceShift = b.delay
}

// A Conveyor is a belt of fixed stages that holds at most one item each.
// Every delay ticks the whole belt moves one stage forward, and the item in
// the last stage is handed to the output. The belt stalls while the item in
// the last stage cannot be handed over.
type Conveyor struct {
	*belt

	engine sim.Engine
	proc   *sim.Process
	states *stateful.StateMachine
}

// ConveyorBuilder builds conveyors.
type ConveyorBuilder struct {
	engine   sim.Engine
	numStage int
	delay    int
	input    *Store
	output   *Store
	power    map[stateful.State]float64
}

// MakeConveyorBuilder creates a ConveyorBuilder.
func MakeConveyorBuilder() ConveyorBuilder {
	return ConveyorBuilder{numStage: 2, delay: 1}
}

// WithEngine sets the engine the conveyor runs on.
func (b ConveyorBuilder) WithEngine(e sim.Engine) ConveyorBuilder {
	b.engine = e
	return b
}

// WithNumStage sets the number of stages.
func (b ConveyorBuilder) WithNumStage(n int) ConveyorBuilder {
	b.numStage = n
	return b
}

// WithDelayPerStage sets the ticks between two moves of the belt.
func (b ConveyorBuilder) WithDelayPerStage(d int) ConveyorBuilder {
	b.delay = d
	return b
}

// WithInput sets the store the belt picks items up from. By default the
// belt has its own single-slot input.
func (b ConveyorBuilder) WithInput(s *Store) ConveyorBuilder {
	b.input = s
	return b
}

// WithOutput sets the store the belt drops items into. By default the belt
// has its own single-slot output.
func (b ConveyorBuilder) WithOutput(s *Store) ConveyorBuilder {
	b.output = s
	return b
}

// WithPowerTable sets the power ratings of the belt states.
func (b ConveyorBuilder) WithPowerTable(
	table map[stateful.State]float64,
) ConveyorBuilder {
	b.power = table
	return b
}

// Build creates the conveyor and starts its process.
func (b ConveyorBuilder) Build(name string) *Conveyor {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	input := b.input
	if input == nil {
		input = MakeStoreBuilder().
			WithTimeTeller(b.engine).
			Build(sim.BuildName(name, "Input"))
	}

	output := b.output
	if output == nil {
		output = MakeStoreBuilder().
			WithTimeTeller(b.engine).
			Build(sim.BuildName(name, "Output"))
	}

	c := &Conveyor{
		belt:   newBelt(name, b.numStage, b.delay, input, output),
		engine: b.engine,
		states: stateful.MakeBuilder().
			WithStates(BeltUnoccupied, BeltOccupied, BeltStalled).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	c.proc = sim.NewProcess(b.engine, name, c.behavior)

	return c
}

// Name returns the name of the conveyor.
func (c *Conveyor) Name() string {
	return c.name
}

// StateMachine returns the state machine of the conveyor.
func (c *Conveyor) StateMachine() *stateful.StateMachine {
	return c.states
}

// Input returns the store the belt picks items up from.
func (c *Conveyor) Input() *Store {
	return c.input
}

// Output returns the store the belt drops items into.
func (c *Conveyor) Output() *Store {
	return c.output
}

// Occupancy returns which stages hold an item.
func (c *Conveyor) Occupancy() []bool {
	return c.stages.Occupancy()
}

func (c *Conveyor) behavior(p *sim.Process) {
	p.Wait(sim.HalfTickAfter(p.Now()) - p.Now())

	for {
		stalled := c.step(p.Now())

		switch {
		case stalled:
			c.states.ChangeState(p.Now(), BeltStalled)
		case c.empty():
			c.states.ChangeState(p.Now(), BeltUnoccupied)
		default:
			c.states.ChangeState(p.Now(), BeltOccupied)
		}

		p.Wait(sim.Tick)
	}
}
