package sim

// VTimeInSec is a point on the simulated clock. One tick of the line is one
// second, and belts advance on half ticks, so every instant the line uses is
// a multiple of 0.5 and is represented exactly.
type VTimeInSec float64

// An Event is a wake-up that the engine delivers to its handler at a given
// time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler
}

// A Handler receives the events scheduled for it. An error returned from
// Handle stops the engine, which is how a failing process ends the run.
type Handler interface {
	Handle(e Event) error
}

// EventBase can be embedded to implement Event.
type EventBase struct {
	time    VTimeInSec
	handler Handler
}

// Time returns when the event fires.
func (e EventBase) Time() VTimeInSec { return e.time }

// Handler returns who receives the event.
func (e EventBase) Handler() Handler { return e.handler }

// TimeTeller reports the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler queues events.
type EventScheduler interface {
	Schedule(e Event)
}

// A Finisher is told when the line is torn down.
type Finisher interface {
	Finish(now VTimeInSec)
}

// An Engine drives the line clock. It hands control to one event handler at
// a time, in the order of event time and then of scheduling.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run handles events until none is left.
	Run() error

	// RunUntil handles every event due no later than horizon and then
	// leaves the clock at horizon.
	RunUntil(horizon VTimeInSec) error

	// Pause blocks the run loop before its next event until Continue.
	Pause()
	Continue()

	// OnFinish registers f to be called by Finished.
	OnFinish(f Finisher)

	// Finished calls every registered Finisher once.
	Finished()
}
