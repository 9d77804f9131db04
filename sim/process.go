package sim

import (
	"errors"
)

// PollInterval is the time between two checks of a WaitUntil condition.
// Polling at whole ticks is what keeps machines acting on integer instants.
const PollInterval VTimeInSec = 1

type processState int

const (
	processCreated processState = iota
	processRunning
	processWaiting
	processWaitingInterruptible
	processInterrupted
	processPassive
	processActivated
	processFinished
)

func (s processState) String() string {
	switch s {
	case processCreated:
		return "created"
	case processRunning:
		return "running"
	case processWaiting:
		return "waiting"
	case processWaitingInterruptible:
		return "waiting interruptibly"
	case processInterrupted:
		return "already interrupted"
	case processPassive:
		return "passive"
	case processActivated:
		return "activated"
	case processFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// An Interrupt is what a process receives when its interruptible wait is cut
// short by another process.
type Interrupt struct {
	Cause     any
	Remaining VTimeInSec
}

type wakeEvent struct {
	EventBase
	canceled bool
}

type resumeSignal struct {
	kill bool
}

type yieldSignal struct {
	finished bool
	err      error
}

var errProcessKilled = errors.New("process killed at teardown")

// A Process is a unit of cooperative behavior. Its body runs in its own
// goroutine, but the engine hands control to exactly one process at a time:
// a process runs from the moment its wake-up event is handled until it
// suspends again in Wait, WaitUntil, WaitInterruptible or Passivate.
type Process struct {
	name   string
	engine Engine
	body   func(p *Process)

	resumeCh chan resumeSignal
	yieldCh  chan yieldSignal

	state     processState
	wake      *wakeEvent
	waitStart VTimeInSec
	waitDelay VTimeInSec
	interrupt *Interrupt
}

// NewProcess creates a process and schedules its first resumption at the
// current time. The process is killed when the engine's Finished is called.
func NewProcess(engine Engine, name string, body func(p *Process)) *Process {
	p := &Process{
		name:     name,
		engine:   engine,
		body:     body,
		resumeCh: make(chan resumeSignal),
		yieldCh:  make(chan yieldSignal),
		state:    processCreated,
	}

	engine.OnFinish(processTerminator{p: p})

	go p.run()

	p.scheduleWake(engine.CurrentTime())

	return p
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// Now returns the current virtual time.
func (p *Process) Now() VTimeInSec {
	return p.engine.CurrentTime()
}

// Interruptible tells whether the process is suspended in WaitInterruptible
// and has not been interrupted yet.
func (p *Process) Interruptible() bool {
	return p.state == processWaitingInterruptible
}

// Finished tells whether the body of the process has returned.
func (p *Process) Finished() bool {
	return p.state == processFinished
}

// Handle resumes the process and blocks until it suspends again.
func (p *Process) Handle(e Event) error {
	evt := e.(*wakeEvent)
	if evt.canceled || p.state == processFinished {
		return nil
	}

	p.wake = nil
	p.resumeCh <- resumeSignal{}
	sig := <-p.yieldCh

	return sig.err
}

// Wait suspends the process for d. A zero wait still lets the events already
// queued for the current instant run first.
func (p *Process) Wait(d VTimeInSec) {
	p.mustBeNonNegative(d)

	p.scheduleWake(p.Now() + d)
	p.state = processWaiting
	p.suspend()
}

// WaitUntil polls cond every PollInterval until it holds. It returns at once
// if cond already holds.
func (p *Process) WaitUntil(cond func() bool) {
	for !cond() {
		p.Wait(PollInterval)
	}
}

// AlignToTick waits until the next integer instant.
func (p *Process) AlignToTick() {
	now := p.Now()
	p.Wait(TickAtOrAfter(now) - now)
}

// WaitInterruptible suspends the process for d unless another process
// interrupts it first. It returns nil if the whole duration elapsed, and the
// interrupt with the unwaited remainder otherwise.
func (p *Process) WaitInterruptible(d VTimeInSec) *Interrupt {
	p.mustBeNonNegative(d)

	now := p.Now()
	p.scheduleWake(now + d)
	p.waitStart = now
	p.waitDelay = d
	p.state = processWaitingInterruptible
	p.suspend()

	intr := p.interrupt
	p.interrupt = nil

	return intr
}

// Interrupt cancels the interruptible wait of the process. The process
// resumes at the current instant with the cause and its remaining time.
// Interrupting a process that is not in an interruptible wait is an
// InvariantViolation.
func (p *Process) Interrupt(cause any) error {
	if p.state != processWaitingInterruptible {
		return NewInvariantViolation(p.name,
			"cannot interrupt a process that is %s", p.state)
	}

	now := p.engine.CurrentTime()

	p.wake.canceled = true
	p.interrupt = &Interrupt{
		Cause:     cause,
		Remaining: p.waitDelay - (now - p.waitStart),
	}
	p.state = processInterrupted
	p.scheduleWake(now)

	return nil
}

// Passivate suspends the process without scheduling a wake-up. Another
// process must call Activate to resume it.
func (p *Process) Passivate() {
	p.state = processPassive
	p.suspend()
}

// Activate schedules a passive process to resume at the current instant.
func (p *Process) Activate() {
	if p.state != processPassive {
		panic(NewInvariantViolation(p.name,
			"cannot activate a process that is %s", p.state))
	}

	p.state = processActivated
	p.scheduleWake(p.engine.CurrentTime())
}

func (p *Process) mustBeNonNegative(d VTimeInSec) {
	if d < 0 {
		panic(NewInvariantViolation(p.name, "negative wait %.2f", d))
	}
}

func (p *Process) scheduleWake(t VTimeInSec) {
	evt := &wakeEvent{EventBase: EventBase{time: t, handler: p}}
	p.wake = evt
	p.engine.Schedule(evt)
}

func (p *Process) suspend() {
	p.yieldCh <- yieldSignal{}

	sig := <-p.resumeCh
	if sig.kill {
		panic(errProcessKilled)
	}

	p.state = processRunning
}

func (p *Process) run() {
	sig := <-p.resumeCh
	if sig.kill {
		p.state = processFinished
		p.yieldCh <- yieldSignal{finished: true}
		return
	}

	p.state = processRunning
	err := p.runBody()

	p.state = processFinished
	p.yieldCh <- yieldSignal{finished: true, err: err}
}

func (p *Process) runBody() (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if rErr, ok := r.(error); ok {
			if errors.Is(rErr, errProcessKilled) {
				return
			}

			err = rErr
			return
		}

		err = &ProcessPanic{Process: p.name, Value: r}
	}()

	p.body(p)

	return nil
}

func (p *Process) kill() {
	if p.state == processFinished {
		return
	}

	p.resumeCh <- resumeSignal{kill: true}
	<-p.yieldCh
}

type processTerminator struct {
	p *Process
}

func (t processTerminator) Finish(_ VTimeInSec) {
	t.p.kill()
}
