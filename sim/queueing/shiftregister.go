package queueing

import (
	"github.com/smtline/smtline/sim"
)

// HookPosShift marks when a shift register moves its stages forward.
var HookPosShift = &sim.HookPos{Name: "Shift"}

// A ShiftRegister is a fixed row of stages that holds at most one item each.
// All stages move together: a shift moves every item one stage forward and
// is refused while the last stage is occupied.
type ShiftRegister[T any] struct {
	sim.HookableBase

	name   string
	stages []*T
}

// ShiftRegisterBuilder builds shift registers.
type ShiftRegisterBuilder[T any] struct {
	numStage int
}

// MakeShiftRegisterBuilder creates a builder with 2 stages.
func MakeShiftRegisterBuilder[T any]() ShiftRegisterBuilder[T] {
	return ShiftRegisterBuilder[T]{numStage: 2}
}

// WithNumStage sets the number of stages.
func (b ShiftRegisterBuilder[T]) WithNumStage(n int) ShiftRegisterBuilder[T] {
	b.numStage = n
	return b
}

// Build creates a shift register. It panics with a ConfigurationError if
// there are fewer than 2 stages.
func (b ShiftRegisterBuilder[T]) Build(name string) *ShiftRegister[T] {
	sim.NameMustBeValid(name)

	if b.numStage < 2 {
		panic(sim.NewConfigurationError(name,
			"at least 2 stages are required, got %d", b.numStage))
	}

	return &ShiftRegister[T]{
		name:   name,
		stages: make([]*T, b.numStage),
	}
}

// Name returns the name of the shift register.
func (r *ShiftRegister[T]) Name() string {
	return r.name
}

// NumStage returns the number of stages.
func (r *ShiftRegister[T]) NumStage() int {
	return len(r.stages)
}

// Occupancy returns which stages hold an item.
func (r *ShiftRegister[T]) Occupancy() []bool {
	occupied := make([]bool, len(r.stages))
	for i, s := range r.stages {
		occupied[i] = s != nil
	}

	return occupied
}

// Size returns the number of items on the stages.
func (r *ShiftRegister[T]) Size() int {
	n := 0

	for _, s := range r.stages {
		if s != nil {
			n++
		}
	}

	return n
}

// Capacity returns the number of stages.
func (r *ShiftRegister[T]) Capacity() int {
	return len(r.stages)
}

// Empty tells whether no stage holds an item.
func (r *ShiftRegister[T]) Empty() bool {
	return r.Size() == 0
}

// LastOccupied tells whether the last stage holds an item.
func (r *ShiftRegister[T]) LastOccupied() bool {
	return r.stages[len(r.stages)-1] != nil
}

// FirstOccupied tells whether the first stage holds an item.
func (r *ShiftRegister[T]) FirstOccupied() bool {
	return r.stages[0] != nil
}

// CanShift tells whether the stages can move forward.
func (r *ShiftRegister[T]) CanShift() bool {
	return !r.LastOccupied()
}

// Shift moves every item one stage forward and leaves the first stage empty.
// Shifting while the last stage is occupied is an InvariantViolation.
func (r *ShiftRegister[T]) Shift() {
	if r.LastOccupied() {
		panic(sim.NewInvariantViolation(r.name,
			"cannot shift while the last stage is occupied"))
	}

	copy(r.stages[1:], r.stages[:len(r.stages)-1])
	r.stages[0] = nil

	if r.NumHooks() > 0 {
		r.InvokeHook(sim.HookCtx{Domain: r, Pos: HookPosShift})
	}
}

// Load places an item on the first stage, which must be empty.
func (r *ShiftRegister[T]) Load(item T) {
	if r.FirstOccupied() {
		panic(sim.NewInvariantViolation(r.name, "first stage is occupied"))
	}

	r.stages[0] = &item
}

// Unload removes the item on the last stage.
func (r *ShiftRegister[T]) Unload() (T, bool) {
	last := r.stages[len(r.stages)-1]
	if last == nil {
		var zero T
		return zero, false
	}

	r.stages[len(r.stages)-1] = nil

	return *last, true
}

// Clear discards all the items on the stages.
func (r *ShiftRegister[T]) Clear() {
	for i := range r.stages {
		r.stages[i] = nil
	}
}
