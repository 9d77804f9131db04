package line

import (
	"fmt"
	"strings"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
)

// A TaskCause tells why a machine asks an operator for help.
type TaskCause int

// The causes a machine can request a task for.
const (
	SolderRefill TaskCause = iota
	AdhesiveRefill
	ReelReplacement
	Inspection
)

var taskCauseNames = map[TaskCause]string{
	SolderRefill:    "solder_refill",
	AdhesiveRefill:  "adhesive_refill",
	ReelReplacement: "reel_replacement",
	Inspection:      "inspection",
}

func (c TaskCause) String() string {
	if name, ok := taskCauseNames[c]; ok {
		return name
	}

	return fmt.Sprintf("task_cause_%d", int(c))
}

// ParseTaskCause converts a name such as "solder_refill" to a TaskCause.
func ParseTaskCause(name string) (TaskCause, error) {
	for c, n := range taskCauseNames {
		if n == strings.ToLower(name) {
			return c, nil
		}
	}

	return 0, sim.NewConfigurationError("task", "unknown task cause %q", name)
}

// A Requester is anything that can ask an operator for a task, usually a
// machine.
type Requester interface {
	sim.Named
}

// A TaskHandler performs the effect of a task on the requesting machine once
// the operator has spent the task delay.
type TaskHandler func(machine Requester)

// A Task is a job an operator does for one machine.
type Task struct {
	Cause   TaskCause
	Machine Requester
	Handler TaskHandler
	Delay   sim.VTimeInSec

	// A background task, such as an inspection round, can be suspended by
	// foreground requests and resumes afterward with the time it had left.
	Background bool
}

// RefillTask returns a handler that fills the container up to its capacity.
func RefillTask(container *queueing.Container) TaskHandler {
	return func(Requester) {
		container.Refill()
	}
}

// A Maintainable machine waits for an operator to finish its maintenance.
type Maintainable interface {
	Requester

	CompleteMaintenance()
}

// MaintenanceTask returns a handler that tells the machine that its
// maintenance, such as a reel replacement, is done.
func MaintenanceTask() TaskHandler {
	return func(machine Requester) {
		if m, ok := machine.(Maintainable); ok {
			m.CompleteMaintenance()
		}
	}
}

// NoopTask returns a handler that only takes the operator's time.
func NoopTask() TaskHandler {
	return func(Requester) {}
}
