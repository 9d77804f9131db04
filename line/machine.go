package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

// A ResourceNeed is a consumable a machine takes from a container for every
// item, such as solder paste for printing.
type ResourceNeed struct {
	Cause     TaskCause
	Container *queueing.Container
	Amount    AmountFunc
}

type maintenanceKind int

const (
	noMaintenance maintenanceKind = iota
	selfMaintenance
	operatorMaintenance
)

// A Machine processes one item at a time. It waits for an item at its input,
// takes the consumables the item needs, works on it for the processing time
// and moves it to its output. Machines act only at integer instants.
type Machine struct {
	name      string
	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	input     *Store
	output    *Store
	startTime sim.VTimeInSec

	processingTime ProcessingTimeFunc
	needs          []ResourceNeed
	operator       *HumanOperator

	maintenance         maintenanceKind
	maintenanceInterval int
	maintenanceDelay    sim.VTimeInSec
	maintenanceCause    TaskCause
	maintenanceDone     bool

	processed int
}

// MachineBuilder builds machines.
type MachineBuilder struct {
	engine         sim.Engine
	input          *Store
	output         *Store
	startTime      sim.VTimeInSec
	processingTime ProcessingTimeFunc
	needs          []ResourceNeed
	operator       *HumanOperator
	power          map[stateful.State]float64

	maintenance         maintenanceKind
	maintenanceInterval int
	maintenanceDelay    sim.VTimeInSec
	maintenanceCause    TaskCause
}

// MakeMachineBuilder creates a MachineBuilder.
func MakeMachineBuilder() MachineBuilder {
	return MachineBuilder{}
}

// WithEngine sets the engine the machine runs on.
func (b MachineBuilder) WithEngine(e sim.Engine) MachineBuilder {
	b.engine = e
	return b
}

// WithInput sets the store the machine takes items from.
func (b MachineBuilder) WithInput(s *Store) MachineBuilder {
	b.input = s
	return b
}

// WithOutput sets the store the machine puts finished items into.
func (b MachineBuilder) WithOutput(s *Store) MachineBuilder {
	b.output = s
	return b
}

// WithStartTime sets when the machine starts looking for work.
func (b MachineBuilder) WithStartTime(t sim.VTimeInSec) MachineBuilder {
	b.startTime = t
	return b
}

// WithProcessingTime sets how long the machine works on an item.
func (b MachineBuilder) WithProcessingTime(f ProcessingTimeFunc) MachineBuilder {
	b.processingTime = f
	return b
}

// WithResource adds a consumable taken from container for every item. When
// the container runs low the operator is requested with cause.
func (b MachineBuilder) WithResource(
	cause TaskCause,
	container *queueing.Container,
	amount AmountFunc,
) MachineBuilder {
	b.needs = append(append([]ResourceNeed(nil), b.needs...), ResourceNeed{
		Cause:     cause,
		Container: container,
		Amount:    amount,
	})

	return b
}

// WithOperator sets the operator the machine asks for refills and
// maintenance.
func (b MachineBuilder) WithOperator(o *HumanOperator) MachineBuilder {
	b.operator = o
	return b
}

// WithSelfMaintenance makes the machine stop for delay after every n items,
// as a screen printer does for cleaning.
func (b MachineBuilder) WithSelfMaintenance(
	n int,
	delay sim.VTimeInSec,
) MachineBuilder {
	b.maintenance = selfMaintenance
	b.maintenanceInterval = n
	b.maintenanceDelay = delay

	return b
}

// WithOperatorMaintenance makes the machine request the operator with cause
// after every n items and wait until the task is done, as a pick-and-place
// machine does for reel replacement.
func (b MachineBuilder) WithOperatorMaintenance(
	n int,
	cause TaskCause,
) MachineBuilder {
	b.maintenance = operatorMaintenance
	b.maintenanceInterval = n
	b.maintenanceCause = cause

	return b
}

// WithPowerTable sets the power ratings of the machine states.
func (b MachineBuilder) WithPowerTable(
	table map[stateful.State]float64,
) MachineBuilder {
	b.power = table
	return b
}

// Build creates the machine and starts its process.
func (b MachineBuilder) Build(name string) *Machine {
	b.mustBeValid(name)

	m := &Machine{
		name:                name,
		engine:              b.engine,
		input:               b.input,
		output:              b.output,
		startTime:           b.startTime,
		processingTime:      b.processingTime,
		needs:               b.needs,
		operator:            b.operator,
		maintenance:         b.maintenance,
		maintenanceInterval: b.maintenanceInterval,
		maintenanceDelay:    b.maintenanceDelay,
		maintenanceCause:    b.maintenanceCause,
		states: stateful.MakeBuilder().
			WithStates(
				StateIdle,
				StateWaitingForResource,
				StateBusy,
				StateMaintenance,
				StateWaitingForMaintenance,
				StateWaitingToOutput,
			).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	m.proc = sim.NewProcess(b.engine, name, m.behavior)

	return m
}

func (b MachineBuilder) mustBeValid(name string) {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.input == nil || b.output == nil {
		panic(sim.NewConfigurationError(name, "input and output must be set"))
	}

	if b.processingTime == nil {
		panic(sim.NewConfigurationError(name, "processing time is not set"))
	}

	if b.startTime < 0 {
		panic(sim.NewConfigurationError(name, "negative start time"))
	}

	for _, need := range b.needs {
		if need.Container == nil || need.Amount == nil {
			panic(sim.NewConfigurationError(name,
				"resource %s needs a container and an amount", need.Cause))
		}
	}

	needsOperator := len(b.needs) > 0 || b.maintenance == operatorMaintenance
	if needsOperator && b.operator == nil {
		panic(sim.NewConfigurationError(name, "operator is not set"))
	}

	if b.maintenance != noMaintenance && b.maintenanceInterval < 1 {
		panic(sim.NewConfigurationError(name,
			"maintenance interval must be at least 1, got %d",
			b.maintenanceInterval))
	}

	if b.maintenanceDelay < 0 {
		panic(sim.NewConfigurationError(name, "negative maintenance delay"))
	}
}

// Name returns the name of the machine.
func (m *Machine) Name() string {
	return m.name
}

// StateMachine returns the state machine of the machine.
func (m *Machine) StateMachine() *stateful.StateMachine {
	return m.states
}

// Input returns the store the machine takes items from.
func (m *Machine) Input() *Store {
	return m.input
}

// Output returns the store the machine puts items into.
func (m *Machine) Output() *Store {
	return m.output
}

// Processed returns the number of items the machine has finished.
func (m *Machine) Processed() int {
	return m.processed
}

// CompleteMaintenance marks the maintenance the machine waits for as done.
func (m *Machine) CompleteMaintenance() {
	m.maintenanceDone = true
}

func (m *Machine) behavior(p *sim.Process) {
	p.Wait(m.startTime)

	for {
		m.states.ChangeState(p.Now(), StateIdle)
		p.WaitUntil(m.input.CanGet)

		item, _ := m.input.Peek()
		logf(p.Now(), m.name, "started processing %v", item)

		m.consumeResources(p, item)

		p.AlignToTick()
		m.states.ChangeState(p.Now(), StateBusy)
		p.Wait(m.processingTime(item))
		p.AlignToTick()
		logf(p.Now(), m.name, "finished processing %v", item)

		m.states.ChangeState(p.Now(), StateWaitingToOutput)
		p.WaitUntil(m.output.CanPut)

		m.moveToOutput(item)
		m.processed++
		logf(p.Now(), m.name, "output %v on %s", item, m.output.Name())

		if m.maintenanceDue() {
			m.maintain(p)
		}
	}
}

func (m *Machine) consumeResources(p *sim.Process, item Item) {
	amounts := make([]float64, len(m.needs))

	for i, need := range m.needs {
		amounts[i] = need.Amount(item)
		if need.Container.Level() >= amounts[i] {
			continue
		}

		warnf(p.Now(), m.name, "%s low (%.1f < %.1f), needs refilling",
			need.Container.Name(), need.Container.Level(), amounts[i])
		m.states.ChangeState(p.Now(), StateWaitingForResource)
		m.operator.Request(need.Cause, m)
	}

	for i, need := range m.needs {
		need.Container.Get(p, amounts[i])
	}
}

func (m *Machine) moveToOutput(item Item) {
	got, ok := m.input.TryGet()
	if !ok || got != item {
		panic(sim.NewInvariantViolation(m.name,
			"item %v left the input while being processed", item))
	}

	m.output.Push(item)
}

func (m *Machine) maintenanceDue() bool {
	return m.maintenance != noMaintenance &&
		m.processed%m.maintenanceInterval == 0
}

func (m *Machine) maintain(p *sim.Process) {
	switch m.maintenance {
	case selfMaintenance:
		m.states.ChangeState(p.Now(), StateMaintenance)
		logf(p.Now(), m.name, "started maintenance")
		p.Wait(m.maintenanceDelay)
	case operatorMaintenance:
		m.states.ChangeState(p.Now(), StateWaitingForMaintenance)
		m.maintenanceDone = false
		m.operator.Request(m.maintenanceCause, m)
		p.WaitUntil(func() bool { return m.maintenanceDone })
	}

	logf(p.Now(), m.name, "finished maintenance")
}
