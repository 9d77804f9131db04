// Package line models the machines, belts and people of an SMT PCB
// production line on top of the sim engine.
package line

import (
	"github.com/sirupsen/logrus"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

// A Store is the buffer that connects two components.
type Store = queueing.Store[Item]

// MakeStoreBuilder creates a builder for the stores that connect components.
func MakeStoreBuilder() queueing.StoreBuilder[Item] {
	return queueing.MakeStoreBuilder[Item]()
}

// A Component is a part of the line that runs its own process and keeps
// track of its state.
type Component interface {
	sim.Named

	StateMachine() *stateful.StateMachine
}

// The states shared by the machines of the line.
const (
	StateIdle                  stateful.State = "idle"
	StateWaitingForResource    stateful.State = "waiting_for_resource"
	StateBusy                  stateful.State = "busy"
	StateMaintenance           stateful.State = "maintenance"
	StateWaitingForMaintenance stateful.State = "waiting_for_maintenance"
	StateWaitingToOutput       stateful.State = "waiting_to_output"
)

func mustHaveEngine(name string, engine sim.Engine) {
	if engine == nil {
		panic(sim.NewConfigurationError(name, "engine is not set"))
	}
}

func logf(now sim.VTimeInSec, name, format string, args ...any) {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	logrus.WithField("component", name).
		Debugf("[T=%08.1f] "+format, append([]any{float64(now)}, args...)...)
}

func warnf(now sim.VTimeInSec, name, format string, args ...any) {
	logrus.WithField("component", name).
		Warnf("[T=%08.1f] "+format, append([]any{float64(now)}, args...)...)
}
