package stats

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

var _ = Describe("Tracer", func() {
	var (
		clock  *manualClock
		m      *stateful.StateMachine
		tracer *Tracer
	)

	BeforeEach(func() {
		clock = &manualClock{}
		m = stateful.MakeBuilder().
			WithStates("idle", "busy").
			Build("Printer")
		tracer = NewTracer(clock)
		tracer.Watch(m)
	})

	It("should record closed and open intervals", func() {
		m.ChangeState(2, "busy")
		m.ChangeState(7, "idle")
		clock.now = 10

		Expect(tracer.Intervals("Printer")).To(Equal([]Interval{
			{State: "idle", Start: 0, End: 2},
			{State: "busy", Start: 2, End: 7},
			{State: "idle", Start: 7, End: 10},
		}))
		Expect(tracer.DwellTimes("Printer")).To(Equal(
			map[stateful.State]sim.VTimeInSec{"idle": 5, "busy": 5}))
	})

	It("should not record a change to the same state", func() {
		m.ChangeState(3, "idle")
		clock.now = 4

		Expect(tracer.Intervals("Printer")).To(Equal([]Interval{
			{State: "idle", Start: 0, End: 4},
		}))
	})

	It("should watch a state machine once", func() {
		tracer.Watch(m)
		m.ChangeState(1, "busy")

		Expect(tracer.Components()).To(Equal([]string{"Printer"}))
		Expect(tracer.Intervals("Printer")).To(HaveLen(1))
	})

	It("should know nothing about unwatched components", func() {
		Expect(tracer.Intervals("Oven")).To(BeNil())
	})
})
