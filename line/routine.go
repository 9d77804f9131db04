package line

import (
	"github.com/smtline/smtline/sim"
)

// A Routine asks an operator for the same task at a fixed period, such as an
// inspection round. The task is usually a background task.
type Routine struct {
	name      string
	engine    sim.Engine
	proc      *sim.Process
	operator  *HumanOperator
	cause     TaskCause
	period    sim.VTimeInSec
	startTime sim.VTimeInSec

	issued int
}

// RoutineBuilder builds routines.
type RoutineBuilder struct {
	engine    sim.Engine
	operator  *HumanOperator
	cause     TaskCause
	period    sim.VTimeInSec
	startTime sim.VTimeInSec
}

// MakeRoutineBuilder creates a RoutineBuilder for inspections.
func MakeRoutineBuilder() RoutineBuilder {
	return RoutineBuilder{cause: Inspection}
}

// WithEngine sets the engine the routine runs on.
func (b RoutineBuilder) WithEngine(e sim.Engine) RoutineBuilder {
	b.engine = e
	return b
}

// WithOperator sets the operator that is asked.
func (b RoutineBuilder) WithOperator(o *HumanOperator) RoutineBuilder {
	b.operator = o
	return b
}

// WithCause sets the cause of the requests.
func (b RoutineBuilder) WithCause(c TaskCause) RoutineBuilder {
	b.cause = c
	return b
}

// WithPeriod sets the time between two requests.
func (b RoutineBuilder) WithPeriod(d sim.VTimeInSec) RoutineBuilder {
	b.period = d
	return b
}

// WithStartTime sets the time of the first request.
func (b RoutineBuilder) WithStartTime(t sim.VTimeInSec) RoutineBuilder {
	b.startTime = t
	return b
}

// Build creates the routine and starts its process.
func (b RoutineBuilder) Build(name string) *Routine {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.operator == nil {
		panic(sim.NewConfigurationError(name, "operator is not set"))
	}

	if b.period < 1 {
		panic(sim.NewConfigurationError(name,
			"period must be at least 1, got %.2f", b.period))
	}

	r := &Routine{
		name:      name,
		engine:    b.engine,
		operator:  b.operator,
		cause:     b.cause,
		period:    b.period,
		startTime: b.startTime,
	}

	r.proc = sim.NewProcess(b.engine, name, r.behavior)

	return r
}

// Name returns the name of the routine.
func (r *Routine) Name() string {
	return r.name
}

// Issued returns the number of requests made.
func (r *Routine) Issued() int {
	return r.issued
}

func (r *Routine) behavior(p *sim.Process) {
	p.Wait(r.startTime)

	for {
		r.operator.Request(r.cause, r)
		r.issued++

		p.Wait(r.period)
	}
}
