package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// The states of an operator.
const (
	OperatorIdle stateful.State = "idle"
	OperatorBusy stateful.State = "busy"
)

// DefaultIdlePeriod is how long an idle operator waits before looking again.
const DefaultIdlePeriod sim.VTimeInSec = 10

type taskKey struct {
	cause   TaskCause
	machine Requester
}

type request struct {
	cause   TaskCause
	machine Requester
	at      sim.VTimeInSec
}

// A HumanOperator stays idle until a machine requests one of the tasks
// assigned to it. Requests that arrive while the operator cannot be
// interrupted wait in line and are served in arrival order.
type HumanOperator struct {
	name       string
	engine     sim.Engine
	proc       *sim.Process
	states     *stateful.StateMachine
	idlePeriod sim.VTimeInSec

	tasks   map[taskKey]Task
	pending []request

	numRequests    int
	numInterrupts  int
	tasksCompleted int
}

// HumanOperatorBuilder builds operators.
type HumanOperatorBuilder struct {
	engine     sim.Engine
	idlePeriod sim.VTimeInSec
	power      map[stateful.State]float64
}

// MakeHumanOperatorBuilder creates a HumanOperatorBuilder.
func MakeHumanOperatorBuilder() HumanOperatorBuilder {
	return HumanOperatorBuilder{idlePeriod: DefaultIdlePeriod}
}

// WithEngine sets the engine the operator runs on.
func (b HumanOperatorBuilder) WithEngine(e sim.Engine) HumanOperatorBuilder {
	b.engine = e
	return b
}

// WithIdlePeriod sets the length of the interruptible idle wait.
func (b HumanOperatorBuilder) WithIdlePeriod(
	d sim.VTimeInSec,
) HumanOperatorBuilder {
	b.idlePeriod = d
	return b
}

// WithPowerTable sets the power ratings of the operator states.
func (b HumanOperatorBuilder) WithPowerTable(
	table map[stateful.State]float64,
) HumanOperatorBuilder {
	b.power = table
	return b
}

// Build creates the operator and starts its process.
func (b HumanOperatorBuilder) Build(name string) *HumanOperator {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.idlePeriod <= 0 {
		panic(sim.NewConfigurationError(name,
			"idle period must be positive, got %.2f", b.idlePeriod))
	}

	o := &HumanOperator{
		name:       name,
		engine:     b.engine,
		idlePeriod: b.idlePeriod,
		tasks:      make(map[taskKey]Task),
		states: stateful.MakeBuilder().
			WithStates(OperatorIdle, OperatorBusy).
			WithPowerTable(b.power).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	o.proc = sim.NewProcess(b.engine, name, o.behavior)

	return o
}

// Name returns the name of the operator.
func (o *HumanOperator) Name() string {
	return o.name
}

// StateMachine returns the idle/busy state machine of the operator.
func (o *HumanOperator) StateMachine() *stateful.StateMachine {
	return o.states
}

// NumRequests returns the number of requests received.
func (o *HumanOperator) NumRequests() int {
	return o.numRequests
}

// NumInterrupts returns the number of requests that interrupted the operator.
func (o *HumanOperator) NumInterrupts() int {
	return o.numInterrupts
}

// TasksCompleted returns the number of tasks finished.
func (o *HumanOperator) TasksCompleted() int {
	return o.tasksCompleted
}

// NumPending returns the number of requests waiting to be served.
func (o *HumanOperator) NumPending() int {
	return len(o.pending)
}

// Tasks returns the tasks assigned to the operator.
func (o *HumanOperator) Tasks() []Task {
	tasks := make([]Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		tasks = append(tasks, t)
	}

	return tasks
}

// AssignTask adds a task. Only one task may exist per cause and machine.
func (o *HumanOperator) AssignTask(task Task) error {
	if task.Machine == nil {
		return sim.NewConfigurationError(o.name,
			"task %s has no machine", task.Cause)
	}

	if task.Handler == nil {
		return sim.NewConfigurationError(o.name,
			"task %s for %s has no handler", task.Cause, task.Machine.Name())
	}

	if task.Delay < 1 || !sim.IsOnTick(task.Delay) {
		return sim.NewConfigurationError(o.name,
			"task %s for %s needs a delay of whole ticks, at least 1, got %.2f",
			task.Cause, task.Machine.Name(), task.Delay)
	}

	key := taskKey{cause: task.Cause, machine: task.Machine}
	if _, found := o.tasks[key]; found {
		return sim.NewConfigurationError(o.name,
			"task %s for %s is already assigned",
			task.Cause, task.Machine.Name())
	}

	o.tasks[key] = task

	return nil
}

// Request asks the operator to perform the task assigned for cause on
// machine. An idle operator is interrupted at once; otherwise the request
// waits until the operator is free.
func (o *HumanOperator) Request(cause TaskCause, machine Requester) {
	now := o.engine.CurrentTime()
	req := request{cause: cause, machine: machine, at: now}

	o.numRequests++

	logf(now, o.name, "requested by %s for %s", machine.Name(), cause)

	if o.proc.Interruptible() {
		if err := o.proc.Interrupt(req); err != nil {
			panic(err)
		}

		o.numInterrupts++

		return
	}

	o.pending = append(o.pending, req)
}

func (o *HumanOperator) behavior(p *sim.Process) {
	for {
		if len(o.pending) > 0 {
			req := o.pending[0]
			o.pending = o.pending[1:]
			o.serve(p, req)

			continue
		}

		o.states.ChangeState(p.Now(), OperatorIdle)

		intr := p.WaitInterruptible(o.idlePeriod)
		if intr == nil {
			continue
		}

		o.serve(p, intr.Cause.(request))
	}
}

func (o *HumanOperator) lookup(req request) Task {
	task, found := o.tasks[taskKey{cause: req.cause, machine: req.machine}]
	if !found {
		panic(sim.NewConfigurationError(o.name,
			"no task %s assigned for %s", req.cause, req.machine.Name()))
	}

	return task
}

func (o *HumanOperator) serve(p *sim.Process, req request) {
	task := o.lookup(req)

	o.states.ChangeState(p.Now(), OperatorBusy)

	if task.Background {
		o.runBackground(p, task)
		return
	}

	o.runForeground(p, task)
}

func (o *HumanOperator) runForeground(p *sim.Process, task Task) {
	logf(p.Now(), o.name, "starting %s for %s",
		task.Cause, task.Machine.Name())

	p.Wait(task.Delay)
	task.Handler(task.Machine)
	o.tasksCompleted++

	logf(p.Now(), o.name, "finished %s for %s",
		task.Cause, task.Machine.Name())
}

// runBackground performs a background task in interruptible slices. Each
// foreground request that cuts in is served at once, and the background task
// then continues with the time it had left.
func (o *HumanOperator) runBackground(p *sim.Process, task Task) {
	logf(p.Now(), o.name, "starting background %s for %s",
		task.Cause, task.Machine.Name())

	remaining := task.Delay

	for {
		intr := p.WaitInterruptible(remaining)
		if intr == nil {
			break
		}

		remaining = intr.Remaining
		o.pending = append(o.pending, intr.Cause.(request))

		logf(p.Now(), o.name, "suspending %s for %s with %.1f left",
			task.Cause, task.Machine.Name(), remaining)

		o.serveForegroundPending(p)
	}

	task.Handler(task.Machine)
	o.tasksCompleted++

	logf(p.Now(), o.name, "finished background %s for %s",
		task.Cause, task.Machine.Name())
}

func (o *HumanOperator) serveForegroundPending(p *sim.Process) {
	for {
		i := o.nextForeground()
		if i < 0 {
			return
		}

		req := o.pending[i]
		o.pending = append(o.pending[:i], o.pending[i+1:]...)

		o.runForeground(p, o.lookup(req))
	}
}

func (o *HumanOperator) nextForeground() int {
	for i, req := range o.pending {
		if !o.lookup(req).Background {
			return i
		}
	}

	return -1
}
