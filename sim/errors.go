package sim

import "fmt"

// A ConfigurationError reports a model that cannot be built or dispatched,
// such as a belt with too few stages or a missing operator task.
type ConfigurationError struct {
	Where  string
	Reason string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(where, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Where:  where,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Where, e.Reason)
}

// An InvariantViolation reports a logic fault detected while the simulation
// runs. It always aborts the run.
type InvariantViolation struct {
	Where  string
	Reason string
}

// NewInvariantViolation creates an InvariantViolation.
func NewInvariantViolation(where, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{
		Where:  where,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Where, e.Reason)
}

// A ProcessPanic wraps a non-error value that a process panicked with.
type ProcessPanic struct {
	Process string
	Value   any
}

func (e *ProcessPanic) Error() string {
	return fmt.Sprintf("process %s panicked: %v", e.Process, e.Value)
}
