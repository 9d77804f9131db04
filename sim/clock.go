package sim

import "math"

// The line advances on whole ticks. Belts and ovens move their PCBs on the
// half ticks in between.
const (
	Tick     VTimeInSec = 1
	HalfTick            = Tick / 2
)

// TickAtOrAfter returns the first whole tick no earlier than t.
func TickAtOrAfter(t VTimeInSec) VTimeInSec {
	mustBeValidTime(t)

	return VTimeInSec(math.Ceil(float64(t)))
}

// HalfTickAfter returns the half tick that follows the first whole tick no
// earlier than t. A belt started at t moves for the first time then.
func HalfTickAfter(t VTimeInSec) VTimeInSec {
	return TickAtOrAfter(t) + HalfTick
}

// IsOnTick tells whether t is a whole tick.
func IsOnTick(t VTimeInSec) bool {
	return TickAtOrAfter(t) == t
}

// Ticks returns the number of whole ticks from 0 to t, rounded to the
// nearest.
func Ticks(t VTimeInSec) uint64 {
	mustBeValidTime(t)

	return uint64(math.Round(float64(t)))
}

func mustBeValidTime(t VTimeInSec) {
	if math.IsNaN(float64(t)) || t < 0 {
		panic(NewInvariantViolation("clock", "invalid time %v", float64(t)))
	}
}
