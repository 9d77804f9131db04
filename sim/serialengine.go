package sim

import (
	"fmt"
	"sync"
)

// A SerialEngine handles one event at a time on the calling goroutine.
type SerialEngine struct {
	HookableBase

	queue *EventQueue

	nowMu sync.RWMutex
	now   VTimeInSec

	// gate is held while an event is handled and for as long as the engine
	// is paused, so a paused engine is never in the middle of an event.
	gate    sync.Mutex
	pauseMu sync.Mutex
	paused  bool
	runMu   sync.Mutex

	finishers []Finisher
}

// NewSerialEngine creates a SerialEngine at time 0.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{queue: NewEventQueue()}
}

// CurrentTime returns the time of the event being handled, or the horizon
// after RunUntil returns.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.nowMu.RLock()
	defer e.nowMu.RUnlock()

	return e.now
}

func (e *SerialEngine) setNow(t VTimeInSec) {
	e.nowMu.Lock()
	e.now = t
	e.nowMu.Unlock()
}

// PendingEvents returns the number of queued events.
func (e *SerialEngine) PendingEvents() int {
	return e.queue.Len()
}

// Schedule queues evt. Scheduling into the past is an InvariantViolation.
func (e *SerialEngine) Schedule(evt Event) {
	if now := e.CurrentTime(); evt.Time() < now {
		panic(NewInvariantViolation("engine",
			"%T scheduled at %.2f, before the current time %.2f",
			evt, evt.Time(), now))
	}

	e.queue.Push(evt)
}

// Run handles events until the queue is empty.
func (e *SerialEngine) Run() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	for e.queue.Len() > 0 {
		if err := e.step(); err != nil {
			return err
		}
	}

	return nil
}

// RunUntil handles the events due at or before horizon. On success the
// clock is left at horizon, so statistics read afterwards cover the whole
// run even if the line went quiet earlier.
func (e *SerialEngine) RunUntil(horizon VTimeInSec) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if now := e.CurrentTime(); horizon < now {
		return NewInvariantViolation("engine",
			"horizon %.2f is before the current time %.2f", horizon, now)
	}

	for {
		next := e.queue.Peek()
		if next == nil || next.Time() > horizon {
			break
		}

		if err := e.step(); err != nil {
			return err
		}
	}

	e.setNow(horizon)

	return nil
}

func (e *SerialEngine) step() error {
	e.gate.Lock()
	defer e.gate.Unlock()

	evt := e.queue.Pop()
	t := evt.Time()

	if now := e.CurrentTime(); t < now {
		panic(NewInvariantViolation("engine",
			"%T due at %.10f is in the past, now %.10f", evt, t, now))
	}

	e.setNow(t)

	ctx := HookCtx{Domain: e, Now: t, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	if err := evt.Handler().Handle(evt); err != nil {
		return fmt.Errorf("at %.2f: %w", t, err)
	}

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return nil
}

// Pause waits for the event being handled to finish and then holds the
// engine until Continue. Pausing a paused engine does nothing.
func (e *SerialEngine) Pause() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if !e.paused {
		e.gate.Lock()
		e.paused = true
	}
}

// Continue releases a paused engine.
func (e *SerialEngine) Continue() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if e.paused {
		e.paused = false
		e.gate.Unlock()
	}
}

// OnFinish registers f to be called by Finished.
func (e *SerialEngine) OnFinish(f Finisher) {
	e.finishers = append(e.finishers, f)
}

// Finished calls the registered finishers once, at the current time.
func (e *SerialEngine) Finished() {
	now := e.CurrentTime()
	for _, f := range e.finishers {
		f.Finish(now)
	}

	e.finishers = nil
}
