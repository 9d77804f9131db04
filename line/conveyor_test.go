package line

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
)

type putRecorder struct {
	times []sim.VTimeInSec
}

func (r *putRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos == queueing.HookPosStorePut {
		r.times = append(r.times, ctx.Now)
	}
}

var _ = Describe("Conveyor", func() {
	var engine *sim.SerialEngine

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
	})

	AfterEach(func() {
		engine.Finished()
	})

	It("should refuse a belt with fewer than two stages", func() {
		Expect(func() {
			MakeConveyorBuilder().
				WithEngine(engine).
				WithNumStage(1).
				Build("Conveyor")
		}).To(PanicWith(BeAssignableToTypeOf(&sim.ConfigurationError{})))
	})

	It("should refuse a zero delay per stage", func() {
		Expect(func() {
			MakeConveyorBuilder().
				WithEngine(engine).
				WithDelayPerStage(0).
				Build("Conveyor")
		}).To(PanicWith(BeAssignableToTypeOf(&sim.ConfigurationError{})))
	})

	It("should create its own single-slot stores", func() {
		c := MakeConveyorBuilder().WithEngine(engine).Build("Conveyor")

		Expect(c.Input().Name()).To(Equal("Conveyor.Input"))
		Expect(c.Input().Capacity()).To(Equal(1))
		Expect(c.Output().Name()).To(Equal("Conveyor.Output"))
		Expect(c.Output().Capacity()).To(Equal(1))
	})

	It("should deliver an item after (N-1) times the stage delay", func() {
		c := MakeConveyorBuilder().
			WithEngine(engine).
			WithNumStage(4).
			WithDelayPerStage(2).
			Build("Conveyor")
		recorder := &putRecorder{}
		c.Output().AcceptHook(recorder)
		c.Input().Push(NewPCB("1", 1, 0, 0))

		Expect(engine.RunUntil(6.4)).To(Succeed())
		Expect(c.Output().Size()).To(Equal(0))
		Expect(c.Occupancy()).To(Equal([]bool{false, false, true, false}))
		Expect(c.StateMachine().Current()).To(Equal(BeltOccupied))

		Expect(engine.RunUntil(6.5)).To(Succeed())
		Expect(c.Output().Size()).To(Equal(1))
		Expect(recorder.times).To(Equal([]sim.VTimeInSec{6.5}))
		Expect(c.StateMachine().Current()).To(Equal(BeltUnoccupied))
	})

	Context("when the output is not drained", func() {
		var c *Conveyor

		BeforeEach(func() {
			c = MakeConveyorBuilder().
				WithEngine(engine).
				WithNumStage(2).
				WithDelayPerStage(1).
				Build("Conveyor")

			sim.NewProcess(engine, "Feeder", func(p *sim.Process) {
				for i := 0; i < 4; i++ {
					c.Input().Put(p, NewPCB("", 1, i, p.Now()))
				}
			})
		})

		It("should stall while the last stage is blocked", func() {
			Expect(engine.RunUntil(5)).To(Succeed())

			Expect(c.StateMachine().Current()).To(Equal(BeltStalled))
			Expect(c.Occupancy()).To(Equal([]bool{true, true}))
			Expect(c.Output().Size()).To(Equal(1))
			Expect(c.Input().Size()).To(Equal(1))
		})

		It("should move on once the output is drained", func() {
			sim.NewProcess(engine, "Taker", func(p *sim.Process) {
				p.Wait(6)
				c.Output().TryGet()
			})

			Expect(engine.RunUntil(6.5)).To(Succeed())

			Expect(c.StateMachine().Current()).To(Equal(BeltOccupied))
			Expect(c.Output().Size()).To(Equal(1))

			pcb, _ := c.Output().Peek()
			Expect(pcb.(*PCB).SerialID).To(Equal(1))
			Expect(c.Occupancy()).To(Equal([]bool{true, true}))
			Expect(c.Input().Size()).To(Equal(0))
		})
	})
})
