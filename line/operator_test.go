package line

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
)

var _ = Describe("HumanOperator", func() {
	var (
		engine   *sim.SerialEngine
		operator *HumanOperator
		printer  *fakeMachine
		placer   *fakeMachine
		done     map[string]sim.VTimeInSec
	)

	record := func(key string) TaskHandler {
		return func(Requester) {
			done[key] = engine.CurrentTime()
		}
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		operator = MakeHumanOperatorBuilder().
			WithEngine(engine).
			Build("Operator")
		printer = &fakeMachine{name: "Printer"}
		placer = &fakeMachine{name: "Placer"}
		done = make(map[string]sim.VTimeInSec)
	})

	AfterEach(func() {
		engine.Finished()
	})

	It("should refuse a second task for the same cause and machine", func() {
		task := Task{
			Cause:   SolderRefill,
			Machine: printer,
			Handler: NoopTask(),
			Delay:   10,
		}

		Expect(operator.AssignTask(task)).To(Succeed())

		err := operator.AssignTask(task)

		Expect(err).To(BeAssignableToTypeOf(&sim.ConfigurationError{}))
		Expect(engine.CurrentTime()).To(Equal(sim.VTimeInSec(0)))
		Expect(operator.Tasks()).To(HaveLen(1))
	})

	DescribeTable("should refuse task delays that are not whole ticks",
		func(delay sim.VTimeInSec) {
			err := operator.AssignTask(Task{
				Cause:   SolderRefill,
				Machine: printer,
				Handler: NoopTask(),
				Delay:   delay,
			})

			Expect(err).To(BeAssignableToTypeOf(&sim.ConfigurationError{}))
			Expect(operator.Tasks()).To(BeEmpty())
		},
		Entry("zero", sim.VTimeInSec(0)),
		Entry("half a tick", sim.VTimeInSec(0.5)),
		Entry("a fraction above one", sim.VTimeInSec(2.5)),
	)

	It("should refuse a task without a handler", func() {
		err := operator.AssignTask(Task{Cause: Inspection, Machine: printer})

		Expect(err).To(BeAssignableToTypeOf(&sim.ConfigurationError{}))
	})

	It("should fail the run on a request without a task", func() {
		sim.NewProcess(engine, "Requester", func(p *sim.Process) {
			p.Wait(3)
			operator.Request(Inspection, printer)
		})

		err := engine.RunUntil(50)

		var cfgErr *sim.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Where).To(Equal("Operator"))
	})

	It("should serve requests in arrival order", func() {
		Expect(operator.AssignTask(Task{
			Cause:   SolderRefill,
			Machine: printer,
			Handler: record("printer"),
			Delay:   10,
		})).To(Succeed())
		Expect(operator.AssignTask(Task{
			Cause:   SolderRefill,
			Machine: placer,
			Handler: record("placer"),
			Delay:   10,
		})).To(Succeed())

		sim.NewProcess(engine, "Requester", func(p *sim.Process) {
			operator.Request(SolderRefill, printer)
			operator.Request(SolderRefill, placer)
		})

		Expect(engine.RunUntil(30)).To(Succeed())

		Expect(done).To(Equal(map[string]sim.VTimeInSec{
			"printer": 10,
			"placer":  20,
		}))
		Expect(operator.NumRequests()).To(Equal(2))
		Expect(operator.NumInterrupts()).To(Equal(1))
		Expect(operator.NumPending()).To(Equal(0))
		Expect(operator.TasksCompleted()).To(Equal(2))
	})

	It("should resume a background task with the time it had left", func() {
		inspector := &fakeMachine{name: "Inspector"}

		Expect(operator.AssignTask(Task{
			Cause:      Inspection,
			Machine:    inspector,
			Handler:    record("inspection"),
			Delay:      30,
			Background: true,
		})).To(Succeed())
		Expect(operator.AssignTask(Task{
			Cause:   SolderRefill,
			Machine: printer,
			Handler: record("refill"),
			Delay:   10,
		})).To(Succeed())

		sim.NewProcess(engine, "Inspector", func(p *sim.Process) {
			operator.Request(Inspection, inspector)
		})
		sim.NewProcess(engine, "Printer", func(p *sim.Process) {
			p.Wait(12)
			operator.Request(SolderRefill, printer)
		})

		Expect(engine.RunUntil(50)).To(Succeed())

		Expect(done).To(Equal(map[string]sim.VTimeInSec{
			"refill":     22,
			"inspection": 40,
		}))
		Expect(operator.NumInterrupts()).To(Equal(2))
		Expect(operator.TasksCompleted()).To(Equal(2))

		dwell := operator.StateMachine().DwellTimes(engine.CurrentTime())
		Expect(dwell[OperatorBusy]).To(Equal(sim.VTimeInSec(40)))
	})

	It("should refuse a routine period below one tick", func() {
		Expect(func() {
			MakeRoutineBuilder().
				WithEngine(engine).
				WithOperator(operator).
				WithPeriod(0).
				Build("Round")
		}).To(PanicWith(BeAssignableToTypeOf(&sim.ConfigurationError{})))
	})
})

var _ = Describe("Routine", func() {
	It("should request its task every period", func() {
		engine := sim.NewSerialEngine()
		defer engine.Finished()

		operator := MakeHumanOperatorBuilder().
			WithEngine(engine).
			Build("Operator")
		routine := MakeRoutineBuilder().
			WithEngine(engine).
			WithOperator(operator).
			WithCause(Inspection).
			WithPeriod(20).
			Build("Round")

		Expect(operator.AssignTask(Task{
			Cause:      Inspection,
			Machine:    routine,
			Handler:    NoopTask(),
			Delay:      5,
			Background: true,
		})).To(Succeed())

		Expect(engine.RunUntil(45)).To(Succeed())

		Expect(routine.Issued()).To(Equal(3))
		Expect(operator.TasksCompleted()).To(Equal(3))
		Expect(operator.NumInterrupts()).To(Equal(3))
	})
})

var _ = Describe("TaskCause", func() {
	It("should parse its names", func() {
		cause, err := ParseTaskCause("Reel_Replacement")

		Expect(err).NotTo(HaveOccurred())
		Expect(cause).To(Equal(ReelReplacement))
		Expect(cause.String()).To(Equal("reel_replacement"))
	})

	It("should refuse unknown names", func() {
		_, err := ParseTaskCause("coffee")

		Expect(err).To(BeAssignableToTypeOf(&sim.ConfigurationError{}))
	})
})
