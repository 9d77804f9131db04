package config

import (
	"fmt"

	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

func (p PowerTable) states() map[stateful.State]float64 {
	table := make(map[stateful.State]float64, len(p))
	for s, w := range p {
		table[stateful.State(s)] = w
	}

	return table
}

type builder struct {
	cfg  *LineConfig
	line *line.Line

	operators map[string]*line.HumanOperator
	ovens     map[string]*line.ReflowOven
	machines  map[string]*line.Machine
	routines  map[string]*line.Routine
}

// Build validates the description and creates the line it describes. Parts
// are named after the line, so a machine "Printer" on line "Line" becomes
// "Line.Printer". Operators are built first so that they are idle before any
// machine asks for them.
func (c *LineConfig) Build() (l *line.Line, err error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		cfg:       c,
		line:      line.NewLine(c.Name),
		operators: make(map[string]*line.HumanOperator),
		ovens:     make(map[string]*line.ReflowOven),
		machines:  make(map[string]*line.Machine),
		routines:  make(map[string]*line.Routine),
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		b.line.Close()

		l = nil
		if e, ok := r.(error); ok {
			err = fmt.Errorf("building line %s: %w", c.Name, e)
			return
		}

		err = fmt.Errorf("building line %s: %v", c.Name, r)
	}()

	b.buildBuffers()
	b.buildOperators()
	b.buildSources()
	b.buildLoaders()
	b.buildMachines()
	b.buildConveyors()
	b.buildOvens()
	b.buildBufferingModules()
	b.buildDownloaders()
	b.buildSinks()
	b.buildRoutines()
	b.assignTasks()

	return b.line, nil
}

func (b *builder) fullName(name string) string {
	return sim.BuildName(b.cfg.Name, name)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func (b *builder) add(c line.Component) {
	must(b.line.AddComponent(c))
}

func (b *builder) store(name string) *line.Store {
	s, found := b.line.Store(b.fullName(name))
	if !found {
		panic(sim.NewConfigurationError(b.cfg.Name, "unknown store %s", name))
	}

	return s
}

func (b *builder) container(name string) *queueing.Container {
	c, found := b.line.Container(b.fullName(name))
	if !found {
		panic(sim.NewConfigurationError(b.cfg.Name,
			"unknown container %s", name))
	}

	return c
}

func (b *builder) buildBuffers() {
	engine := b.line.Engine()

	for _, s := range b.cfg.Stores {
		store := line.MakeStoreBuilder().
			WithCapacity(s.Capacity).
			WithTimeTeller(engine).
			Build(b.fullName(s.Name))
		must(b.line.AddStore(store))
	}

	for _, c := range b.cfg.Containers {
		container := queueing.MakeContainerBuilder().
			WithCapacity(c.Capacity).
			WithInitLevel(c.InitLevel).
			WithTimeTeller(engine).
			Build(b.fullName(c.Name))
		must(b.line.AddContainer(container))
	}
}

func (b *builder) buildOperators() {
	for _, o := range b.cfg.Operators {
		op := line.MakeHumanOperatorBuilder().
			WithEngine(b.line.Engine()).
			WithIdlePeriod(sim.VTimeInSec(o.IdlePeriod)).
			WithPowerTable(o.Power.states()).
			Build(b.fullName(o.Name))
		b.operators[o.Name] = op
		b.add(op)
	}
}

func (b *builder) buildSources() {
	for _, s := range b.cfg.Sources {
		b.add(line.MakeSourceBuilder().
			WithEngine(b.line.Engine()).
			WithOutput(b.store(s.Output)).
			WithIDGenerator(b.line.IDGenerator()).
			WithStartTime(sim.VTimeInSec(s.StartTime)).
			WithDelay(sim.VTimeInSec(s.Delay)).
			WithPCBType(s.PCBType).
			WithStackSize(s.StackSize).
			Build(b.fullName(s.Name)))
	}
}

func (b *builder) buildLoaders() {
	for _, l := range b.cfg.Loaders {
		b.add(line.MakeLineLoaderBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(l.Input)).
			WithOutput(b.store(l.Output)).
			WithStartTime(sim.VTimeInSec(l.StartTime)).
			WithDelay(sim.VTimeInSec(l.Delay)).
			WithPowerTable(l.Power.states()).
			Build(b.fullName(l.Name)))
	}
}

func (b *builder) buildMachines() {
	for _, m := range b.cfg.Machines {
		mb := line.MakeMachineBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(m.Input)).
			WithOutput(b.store(m.Output)).
			WithStartTime(sim.VTimeInSec(m.StartTime)).
			WithPowerTable(m.Power.states())

		if m.ProcessingTime > 0 {
			mb = mb.WithProcessingTime(
				line.FixedTime(sim.VTimeInSec(m.ProcessingTime)))
		} else {
			mb = mb.WithProcessingTime(
				line.TimePerComponent(sim.VTimeInSec(m.TimePerComponent)))
		}

		if m.Operator != "" {
			mb = mb.WithOperator(b.operators[m.Operator])
		}

		for _, r := range m.Resources {
			amount := line.FixedAmount(r.Amount)
			if r.PerType {
				amount = line.AmountPerType(r.Amount)
			}

			mb = mb.WithResource(mustCause(r.Cause), b.container(r.Container),
				amount)
		}

		if mt := m.Maintenance; mt != nil {
			switch mt.Kind {
			case SelfMaintenance:
				mb = mb.WithSelfMaintenance(mt.Every, sim.VTimeInSec(mt.Delay))
			case OperatorMaintenance:
				mb = mb.WithOperatorMaintenance(mt.Every, mustCause(mt.Cause))
			}
		}

		machine := mb.Build(b.fullName(m.Name))
		b.machines[m.Name] = machine
		b.add(machine)
	}
}

func mustCause(name string) line.TaskCause {
	cause, err := line.ParseTaskCause(name)
	must(err)

	return cause
}

func (b *builder) buildConveyors() {
	for _, c := range b.cfg.Conveyors {
		b.add(line.MakeConveyorBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(c.Input)).
			WithOutput(b.store(c.Output)).
			WithNumStage(c.Stages).
			WithDelayPerStage(c.DelayPerStage).
			WithPowerTable(c.Power.states()).
			Build(b.fullName(c.Name)))
	}
}

func (b *builder) buildOvens() {
	for _, o := range b.cfg.Ovens {
		mode := line.Autonomous
		if o.Mode == ModeExternalControl {
			mode = line.ExternalControl
		}

		oven := line.MakeReflowOvenBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(o.Input)).
			WithOutput(b.store(o.Output)).
			WithNumStage(o.Stages).
			WithDelayPerStage(o.DelayPerStage).
			WithSetupTime(sim.VTimeInSec(o.SetupTime)).
			WithMode(mode).
			WithPowerTable(o.Power.states()).
			Build(b.fullName(o.Name))
		b.ovens[o.Name] = oven
		b.add(oven)
	}
}

func (b *builder) buildBufferingModules() {
	for _, m := range b.cfg.BufferingModules {
		mb := line.MakeBufferingModuleBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(m.Input)).
			WithOutput(b.store(m.Output)).
			WithCapacity(m.Capacity).
			WithPowerTable(m.Power.states())

		if m.Oven != "" {
			mb = mb.WithOvenControl(b.ovens[m.Oven])
		}

		b.add(mb.Build(b.fullName(m.Name)))
	}
}

func (b *builder) buildDownloaders() {
	for _, d := range b.cfg.Downloaders {
		b.add(line.MakeLineDownloaderBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(d.Input)).
			WithOutput(b.store(d.Output)).
			WithIDGenerator(b.line.IDGenerator()).
			WithStartTime(sim.VTimeInSec(d.StartTime)).
			WithStackSize(d.StackSize).
			Build(b.fullName(d.Name)))
	}
}

func (b *builder) buildSinks() {
	for _, s := range b.cfg.Sinks {
		b.add(line.MakeSinkBuilder().
			WithEngine(b.line.Engine()).
			WithInput(b.store(s.Input)).
			WithStartTime(sim.VTimeInSec(s.StartTime)).
			WithDelay(sim.VTimeInSec(s.Delay)).
			Build(b.fullName(s.Name)))
	}
}

func (b *builder) buildRoutines() {
	for _, r := range b.cfg.Routines {
		routine := line.MakeRoutineBuilder().
			WithEngine(b.line.Engine()).
			WithOperator(b.operators[r.Operator]).
			WithCause(mustCause(r.Cause)).
			WithPeriod(sim.VTimeInSec(r.Period)).
			WithStartTime(sim.VTimeInSec(r.StartTime)).
			Build(b.fullName(r.Name))
		b.routines[r.Name] = routine
		b.line.AddRoutine(routine)
	}
}

func (b *builder) requester(name string) line.Requester {
	if m, found := b.machines[name]; found {
		return m
	}

	return b.routines[name]
}

func (b *builder) assignTasks() {
	for _, t := range b.cfg.Tasks {
		var handler line.TaskHandler

		switch t.Action {
		case ActionRefill:
			handler = line.RefillTask(b.container(t.Container))
		case ActionMaintenance:
			handler = line.MaintenanceTask()
		default:
			handler = line.NoopTask()
		}

		must(b.operators[t.Operator].AssignTask(line.Task{
			Cause:      mustCause(t.Cause),
			Machine:    b.requester(t.Machine),
			Handler:    handler,
			Delay:      sim.VTimeInSec(t.Delay),
			Background: t.Background,
		}))
	}
}
