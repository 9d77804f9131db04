package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventLogger is an engine hook that traces every event it handles. Attach
// it only when the logger is at trace level, since a line handles several
// events per tick.
type EventLogger struct {
	logger logrus.FieldLogger
}

// NewEventLogger creates an EventLogger that writes into logger.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func logs the event that is about to be handled.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	target := fmt.Sprintf("%T", evt.Handler())
	if named, ok := evt.Handler().(Named); ok {
		target = named.Name()
	}

	h.logger.WithFields(logrus.Fields{
		"time":   float64(evt.Time()),
		"target": target,
	}).Trace("event")
}
