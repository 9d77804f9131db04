package config

import (
	"errors"

	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim"
)

type validator struct {
	errs []error

	components map[string]bool
	stores     map[string]bool
	containers map[string]bool
	operators  map[string]bool
	ovens      map[string]string
	requesters map[string]bool
}

// Validate checks the description without building anything. All problems
// are reported together; each one is a *sim.ConfigurationError.
func (c *LineConfig) Validate() error {
	v := &validator{
		components: make(map[string]bool),
		stores:     make(map[string]bool),
		containers: make(map[string]bool),
		operators:  make(map[string]bool),
		ovens:      make(map[string]string),
		requesters: make(map[string]bool),
	}

	v.name("line", c.Name)

	if c.Horizon < 0 {
		v.fail(c.Name, "negative horizon %g", c.Horizon)
	}

	v.declare(c)
	v.checkParts(c)
	v.checkMachines(c)
	v.checkTasks(c)

	return errors.Join(v.errs...)
}

func (v *validator) fail(where, format string, args ...any) {
	v.errs = append(v.errs, sim.NewConfigurationError(where, format, args...))
}

func (v *validator) name(kind, name string) bool {
	if name == "" {
		v.fail(kind, "missing name")
		return false
	}

	if err := sim.ValidateName(name); err != nil {
		v.errs = append(v.errs, err)
		return false
	}

	return true
}

func (v *validator) component(name string) {
	if !v.name("component", name) {
		return
	}

	if v.components[name] {
		v.fail(name, "duplicate component")
	}

	v.components[name] = true
}

func (v *validator) declare(c *LineConfig) {
	for _, s := range c.Stores {
		if !v.name("store", s.Name) {
			continue
		}

		if v.stores[s.Name] {
			v.fail(s.Name, "duplicate store")
		}

		v.stores[s.Name] = true

		if s.Capacity < 1 {
			v.fail(s.Name, "capacity must be at least 1, got %d", s.Capacity)
		}
	}

	for _, ct := range c.Containers {
		if !v.name("container", ct.Name) {
			continue
		}

		if v.containers[ct.Name] {
			v.fail(ct.Name, "duplicate container")
		}

		v.containers[ct.Name] = true

		if ct.Capacity <= 0 {
			v.fail(ct.Name, "capacity must be positive, got %g", ct.Capacity)
		}

		if ct.InitLevel < 0 || ct.InitLevel > ct.Capacity {
			v.fail(ct.Name, "initial level %g out of [0, %g]",
				ct.InitLevel, ct.Capacity)
		}
	}

	for _, o := range c.Operators {
		v.component(o.Name)
		v.operators[o.Name] = true

		if o.IdlePeriod < 0 {
			v.fail(o.Name, "negative idle period")
		}
	}

	for _, o := range c.Ovens {
		v.ovens[o.Name] = o.Mode
	}

	for _, m := range c.Machines {
		v.requesters[m.Name] = true
	}

	for _, r := range c.Routines {
		v.requesters[r.Name] = true
	}
}

func (v *validator) store(owner, role, name string) {
	if name == "" {
		v.fail(owner, "%s store is not set", role)
		return
	}

	if !v.stores[name] {
		v.fail(owner, "unknown %s store %s", role, name)
	}
}

func (v *validator) nonNegative(owner, what string, x float64) {
	if x < 0 {
		v.fail(owner, "negative %s %g", what, x)
	}
}

func (v *validator) wholeTicks(owner, what string, x float64) {
	if x < 1 || !sim.IsOnTick(sim.VTimeInSec(x)) {
		v.fail(owner, "%s must be a whole number of ticks of at least 1, got %g",
			what, x)
	}
}

func (v *validator) belt(owner string, stages, delay int) {
	if stages < 2 {
		v.fail(owner, "at least 2 stages needed, got %d", stages)
	}

	if delay < 1 {
		v.fail(owner, "delay per stage must be at least 1, got %d", delay)
	}
}

func (v *validator) checkParts(c *LineConfig) {
	for _, s := range c.Sources {
		v.component(s.Name)
		v.store(s.Name, "output", s.Output)
		v.nonNegative(s.Name, "start time", s.StartTime)

		if s.Delay <= 0 {
			v.fail(s.Name, "delay must be positive, got %g", s.Delay)
		}

		if s.PCBType < 1 || s.StackSize < 1 {
			v.fail(s.Name, "PCB type and stack size must be at least 1")
		}
	}

	for _, l := range c.Loaders {
		v.component(l.Name)
		v.store(l.Name, "input", l.Input)
		v.store(l.Name, "output", l.Output)
		v.nonNegative(l.Name, "start time", l.StartTime)
		v.nonNegative(l.Name, "delay", l.Delay)
	}

	for _, cv := range c.Conveyors {
		v.component(cv.Name)
		v.store(cv.Name, "input", cv.Input)
		v.store(cv.Name, "output", cv.Output)
		v.belt(cv.Name, cv.Stages, cv.DelayPerStage)
	}

	for _, o := range c.Ovens {
		v.component(o.Name)
		v.store(o.Name, "input", o.Input)
		v.store(o.Name, "output", o.Output)
		v.belt(o.Name, o.Stages, o.DelayPerStage)

		v.wholeTicks(o.Name, "setup time", o.SetupTime)

		if o.Mode != ModeAutonomous && o.Mode != ModeExternalControl {
			v.fail(o.Name, "unknown mode %q", o.Mode)
		}
	}

	for _, b := range c.BufferingModules {
		v.component(b.Name)
		v.store(b.Name, "input", b.Input)
		v.store(b.Name, "output", b.Output)

		if b.Capacity < 2 {
			v.fail(b.Name, "capacity must be at least 2, got %d", b.Capacity)
		}

		if b.Oven == "" {
			continue
		}

		mode, found := v.ovens[b.Oven]
		switch {
		case !found:
			v.fail(b.Name, "unknown oven %s", b.Oven)
		case mode != ModeExternalControl:
			v.fail(b.Name, "oven %s is not under external control", b.Oven)
		}
	}

	for _, d := range c.Downloaders {
		v.component(d.Name)
		v.store(d.Name, "input", d.Input)
		v.store(d.Name, "output", d.Output)
		v.nonNegative(d.Name, "start time", d.StartTime)

		if d.StackSize < 1 {
			v.fail(d.Name, "stack size must be at least 1, got %d", d.StackSize)
		}
	}

	for _, s := range c.Sinks {
		v.component(s.Name)
		v.store(s.Name, "input", s.Input)
		v.nonNegative(s.Name, "start time", s.StartTime)
		v.nonNegative(s.Name, "delay", s.Delay)
	}

	for _, r := range c.Routines {
		v.component(r.Name)
		v.operator(r.Name, r.Operator)
		v.cause(r.Name, r.Cause)
		v.nonNegative(r.Name, "start time", r.StartTime)

		if r.Period < 1 {
			v.fail(r.Name, "period must be at least 1, got %g", r.Period)
		}
	}
}

func (v *validator) operator(owner, name string) {
	if name == "" {
		v.fail(owner, "operator is not set")
		return
	}

	if !v.operators[name] {
		v.fail(owner, "unknown operator %s", name)
	}
}

func (v *validator) cause(owner, name string) {
	if _, err := line.ParseTaskCause(name); err != nil {
		v.fail(owner, "unknown task cause %q", name)
	}
}

func (v *validator) checkMachines(c *LineConfig) {
	for _, m := range c.Machines {
		v.component(m.Name)
		v.store(m.Name, "input", m.Input)
		v.store(m.Name, "output", m.Output)
		v.nonNegative(m.Name, "start time", m.StartTime)

		fixed, perComponent := m.ProcessingTime > 0, m.TimePerComponent > 0
		if fixed == perComponent {
			v.fail(m.Name,
				"exactly one of processing_time and time_per_component must be positive")
		}

		needsOperator := len(m.Resources) > 0

		for _, r := range m.Resources {
			v.cause(m.Name, r.Cause)

			if !v.containers[r.Container] {
				v.fail(m.Name, "unknown container %q", r.Container)
			}

			if r.Amount <= 0 {
				v.fail(m.Name, "resource amount must be positive, got %g", r.Amount)
			}
		}

		if mt := m.Maintenance; mt != nil {
			if mt.Every < 1 {
				v.fail(m.Name, "maintenance interval must be at least 1, got %d",
					mt.Every)
			}

			switch mt.Kind {
			case SelfMaintenance:
				v.nonNegative(m.Name, "maintenance delay", mt.Delay)
			case OperatorMaintenance:
				needsOperator = true
				v.cause(m.Name, mt.Cause)
			default:
				v.fail(m.Name, "unknown maintenance kind %q", mt.Kind)
			}
		}

		if needsOperator || m.Operator != "" {
			v.operator(m.Name, m.Operator)
		}
	}
}

func (v *validator) checkTasks(c *LineConfig) {
	for _, t := range c.Tasks {
		owner := t.Operator + "/" + t.Cause

		v.operator(owner, t.Operator)
		v.cause(owner, t.Cause)
		v.wholeTicks(owner, "delay", t.Delay)

		if !v.requesters[t.Machine] {
			v.fail(owner, "unknown machine or routine %q", t.Machine)
		}

		switch t.Action {
		case ActionRefill:
			if !v.containers[t.Container] {
				v.fail(owner, "unknown container %q", t.Container)
			}
		case ActionMaintenance, ActionNone:
		default:
			v.fail(owner, "unknown action %q", t.Action)
		}
	}
}
