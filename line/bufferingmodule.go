package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// The states of a buffering module.
const (
	BufferFilling  stateful.State = "filling"
	BufferEmptying stateful.State = "emptying"
)

// A BufferingModule collects PCBs until it is full and then sends them
// downstream in a burst, last in first out. It can switch an externally
// controlled reflow oven on for the burst and off again afterward.
type BufferingModule struct {
	name     string
	engine   sim.Engine
	proc     *sim.Process
	states   *stateful.StateMachine
	input    *Store
	output   *Store
	capacity int
	oven     *ReflowOven
	ovenOn   bool

	held []Item
}

// BufferingModuleBuilder builds buffering modules.
type BufferingModuleBuilder struct {
	engine   sim.Engine
	input    *Store
	output   *Store
	capacity int
	oven     *ReflowOven
	power    map[stateful.State]float64
}

// MakeBufferingModuleBuilder creates a BufferingModuleBuilder.
func MakeBufferingModuleBuilder() BufferingModuleBuilder {
	return BufferingModuleBuilder{capacity: 2}
}

// WithEngine sets the engine the module runs on.
func (b BufferingModuleBuilder) WithEngine(e sim.Engine) BufferingModuleBuilder {
	b.engine = e
	return b
}

// WithInput sets the store the module collects PCBs from.
func (b BufferingModuleBuilder) WithInput(s *Store) BufferingModuleBuilder {
	b.input = s
	return b
}

// WithOutput sets the store the module sends PCBs to.
func (b BufferingModuleBuilder) WithOutput(s *Store) BufferingModuleBuilder {
	b.output = s
	return b
}

// WithCapacity sets the number of PCBs collected before a burst.
func (b BufferingModuleBuilder) WithCapacity(n int) BufferingModuleBuilder {
	b.capacity = n
	return b
}

// WithOvenControl makes the module turn oven on when a burst starts and off
// once the oven has taken the whole burst from the output.
func (b BufferingModuleBuilder) WithOvenControl(
	oven *ReflowOven,
) BufferingModuleBuilder {
	b.oven = oven
	return b
}

// WithPowerTable sets the power ratings of the module states.
func (b BufferingModuleBuilder) WithPowerTable(
	table map[stateful.State]float64,
) BufferingModuleBuilder {
	b.power = table
	return b
}

// Build creates the module and starts its process.
func (b BufferingModuleBuilder) Build(name string) *BufferingModule {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.input == nil || b.output == nil {
		panic(sim.NewConfigurationError(name, "input and output must be set"))
	}

	if b.capacity < 2 {
		panic(sim.NewConfigurationError(name,
			"capacity must be at least 2, got %d", b.capacity))
	}

	if b.oven != nil && b.oven.Mode() != ExternalControl {
		panic(sim.NewConfigurationError(name,
			"oven %s is not externally controlled", b.oven.Name()))
	}

	m := &BufferingModule{
		name:     name,
		engine:   b.engine,
		input:    b.input,
		output:   b.output,
		capacity: b.capacity,
		oven:     b.oven,
		states: stateful.MakeBuilder().
			WithStates(BufferFilling, BufferEmptying).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	m.proc = sim.NewProcess(b.engine, name, m.behavior)

	return m
}

// Name returns the name of the module.
func (m *BufferingModule) Name() string {
	return m.name
}

// StateMachine returns the state machine of the module.
func (m *BufferingModule) StateMachine() *stateful.StateMachine {
	return m.states
}

// Held returns the number of PCBs in the module.
func (m *BufferingModule) Held() int {
	return len(m.held)
}

func (m *BufferingModule) behavior(p *sim.Process) {
	for {
		if m.states.Is(BufferFilling) {
			m.fill(p)
			continue
		}

		p.Wait(sim.HalfTick)
		p.WaitUntil(m.output.CanPut)

		item := m.held[len(m.held)-1]
		m.held = m.held[:len(m.held)-1]
		m.output.Push(item)
		logf(p.Now(), m.name, "output %v", item)

		if len(m.held) == 0 {
			m.states.ChangeState(p.Now(), BufferFilling)
		}

		p.Wait(sim.HalfTick)
	}
}

func (m *BufferingModule) fill(p *sim.Process) {
	for !m.input.CanGet() {
		m.releaseOven(p.Now())
		p.Wait(sim.PollInterval)
	}

	item, _ := m.input.TryGet()
	m.held = append(m.held, item)
	logf(p.Now(), m.name, "buffering %v", item)

	if len(m.held) < m.capacity {
		return
	}

	m.states.ChangeState(p.Now(), BufferEmptying)

	if m.oven != nil && !m.ovenOn {
		m.oven.TurnOn()
		m.ovenOn = true
	}
}

// releaseOven turns the oven off once it has picked up the whole burst.
func (m *BufferingModule) releaseOven(now sim.VTimeInSec) {
	if m.oven == nil || !m.ovenOn || m.output.CanGet() {
		return
	}

	m.oven.TurnOff()
	m.ovenOn = false
	logf(now, m.name, "burst handed over, releasing %s", m.oven.Name())
}
