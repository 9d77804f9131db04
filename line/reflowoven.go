package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// The states of a reflow oven.
const (
	OvenOff                stateful.State = "off"
	OvenSetup              stateful.State = "setup"
	OvenMaintainUnoccupied stateful.State = "temperature_maintain_unoccupied"
	OvenMaintainOccupied   stateful.State = "temperature_maintain_occupied"
)

// OvenMode tells who switches a reflow oven on and off.
type OvenMode int

// The operational modes of a reflow oven.
const (
	// Autonomous ovens start their setup at once and then stay on.
	Autonomous OvenMode = iota

	// ExternalControl ovens follow TurnOn and TurnOff from another machine.
	ExternalControl
)

func (m OvenMode) String() string {
	if m == ExternalControl {
		return "EXTERNAL_CONTROL"
	}

	return "AUTONOMOUS"
}

// A ReflowOven is a belt that runs through a heated tunnel. The oven needs a
// setup time to reach its temperature profile every time it is turned on,
// and only moves the belt while the profile is maintained. The setup always
// runs to completion, and the oven only turns off once the belt is empty.
type ReflowOven struct {
	*belt

	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	mode      OvenMode
	setupTime sim.VTimeInSec
	turnedOn  bool
}

// ReflowOvenBuilder builds reflow ovens.
type ReflowOvenBuilder struct {
	engine    sim.Engine
	numStage  int
	delay     int
	setupTime sim.VTimeInSec
	mode      OvenMode
	input     *Store
	output    *Store
	power     map[stateful.State]float64
}

// MakeReflowOvenBuilder creates a ReflowOvenBuilder.
func MakeReflowOvenBuilder() ReflowOvenBuilder {
	return ReflowOvenBuilder{numStage: 2, delay: 1, setupTime: 1}
}

// WithEngine sets the engine the oven runs on.
func (b ReflowOvenBuilder) WithEngine(e sim.Engine) ReflowOvenBuilder {
	b.engine = e
	return b
}

// WithNumStage sets the number of PCBs that fit on the belt end to end.
func (b ReflowOvenBuilder) WithNumStage(n int) ReflowOvenBuilder {
	b.numStage = n
	return b
}

// WithDelayPerStage sets the ticks a PCB takes to move one stage.
func (b ReflowOvenBuilder) WithDelayPerStage(d int) ReflowOvenBuilder {
	b.delay = d
	return b
}

// WithSetupTime sets the time to reach the temperature profile.
func (b ReflowOvenBuilder) WithSetupTime(t sim.VTimeInSec) ReflowOvenBuilder {
	b.setupTime = t
	return b
}

// WithMode sets the operational mode.
func (b ReflowOvenBuilder) WithMode(m OvenMode) ReflowOvenBuilder {
	b.mode = m
	return b
}

// WithInput sets the store the oven picks PCBs up from.
func (b ReflowOvenBuilder) WithInput(s *Store) ReflowOvenBuilder {
	b.input = s
	return b
}

// WithOutput sets the store the oven drops PCBs into.
func (b ReflowOvenBuilder) WithOutput(s *Store) ReflowOvenBuilder {
	b.output = s
	return b
}

// WithPowerTable sets the power ratings of the oven states.
func (b ReflowOvenBuilder) WithPowerTable(
	table map[stateful.State]float64,
) ReflowOvenBuilder {
	b.power = table
	return b
}

// Build creates the oven and starts its process.
func (b ReflowOvenBuilder) Build(name string) *ReflowOven {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.setupTime < 1 || !sim.IsOnTick(b.setupTime) {
		panic(sim.NewConfigurationError(name,
			"setup time must be a whole number of ticks of at least 1, got %.2f",
			b.setupTime))
	}

	initState := OvenSetup
	if b.mode == ExternalControl {
		initState = OvenOff
	}

	o := &ReflowOven{
		belt:      newBelt(name, b.numStage, b.delay, b.input, b.output),
		engine:    b.engine,
		mode:      b.mode,
		setupTime: b.setupTime,
		states: stateful.MakeBuilder().
			WithStates(
				OvenOff,
				OvenSetup,
				OvenMaintainUnoccupied,
				OvenMaintainOccupied,
			).
			WithInitialState(initState).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	o.proc = sim.NewProcess(b.engine, name, o.behavior)

	return o
}

// Name returns the name of the oven.
func (o *ReflowOven) Name() string {
	return o.name
}

// StateMachine returns the state machine of the oven.
func (o *ReflowOven) StateMachine() *stateful.StateMachine {
	return o.states
}

// Mode returns the operational mode.
func (o *ReflowOven) Mode() OvenMode {
	return o.mode
}

// Input returns the store the oven picks PCBs up from.
func (o *ReflowOven) Input() *Store {
	return o.input
}

// Output returns the store the oven drops PCBs into.
func (o *ReflowOven) Output() *Store {
	return o.output
}

// Occupancy returns which stages hold a PCB.
func (o *ReflowOven) Occupancy() []bool {
	return o.stages.Occupancy()
}

// TurnOn asks an externally controlled oven to turn on.
func (o *ReflowOven) TurnOn() {
	o.turnedOn = true
	logf(o.engine.CurrentTime(), o.name, "external control requested turn on")
}

// TurnOff asks an externally controlled oven to turn off once it is empty.
func (o *ReflowOven) TurnOff() {
	o.turnedOn = false
	logf(o.engine.CurrentTime(), o.name, "external control requested turn off")
}

func (o *ReflowOven) wantsOff() bool {
	return o.mode == ExternalControl && !o.turnedOn
}

func (o *ReflowOven) behavior(p *sim.Process) {
	for {
		switch o.states.Current() {
		case OvenSetup:
			p.Wait(o.setupTime)
			o.belt.resetShift()

			if o.wantsOff() {
				o.states.ChangeState(p.Now(), OvenOff)
			} else {
				o.states.ChangeState(p.Now(), OvenMaintainUnoccupied)
			}
		case OvenOff:
			if o.mode == ExternalControl && o.turnedOn {
				o.states.ChangeState(p.Now(), OvenSetup)
				continue
			}

			p.Wait(1)
		default:
			o.maintain(p)
		}
	}
}

func (o *ReflowOven) maintain(p *sim.Process) {
	p.Wait(sim.HalfTick)
	o.step(p.Now())

	switch {
	case !o.empty():
		o.states.ChangeState(p.Now(), OvenMaintainOccupied)
	case o.wantsOff():
		o.states.ChangeState(p.Now(), OvenOff)
	default:
		o.states.ChangeState(p.Now(), OvenMaintainUnoccupied)
	}

	p.Wait(sim.HalfTick)
}
