package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Process", func() {
	var engine *SerialEngine

	BeforeEach(func() {
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		engine.Finished()
	})

	It("should wait for a duration", func() {
		var times []VTimeInSec

		NewProcess(engine, "Waiter", func(p *Process) {
			times = append(times, p.Now())
			p.Wait(2.5)
			times = append(times, p.Now())
			p.Wait(0)
			times = append(times, p.Now())
		})

		Expect(engine.Run()).To(Succeed())
		Expect(times).To(Equal([]VTimeInSec{0, 2.5, 2.5}))
	})

	It("should let queued events of the same instant run on a zero wait", func() {
		var order []string

		NewProcess(engine, "A", func(p *Process) {
			order = append(order, "a1")
			p.Wait(0)
			order = append(order, "a2")
		})
		NewProcess(engine, "B", func(p *Process) {
			order = append(order, "b1")
		})

		Expect(engine.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"a1", "b1", "a2"}))
	})

	It("should poll a condition at whole ticks", func() {
		ready := false
		var resumedAt VTimeInSec

		NewProcess(engine, "Setter", func(p *Process) {
			p.Wait(2.5)
			ready = true
		})
		NewProcess(engine, "Poller", func(p *Process) {
			p.WaitUntil(func() bool { return ready })
			resumedAt = p.Now()
		})

		Expect(engine.Run()).To(Succeed())
		Expect(resumedAt).To(Equal(VTimeInSec(3)))
	})

	It("should return at once if the condition already holds", func() {
		resumedAt := VTimeInSec(-1)

		NewProcess(engine, "Poller", func(p *Process) {
			p.Wait(0.5)
			p.WaitUntil(func() bool { return true })
			resumedAt = p.Now()
		})

		Expect(engine.Run()).To(Succeed())
		Expect(resumedAt).To(Equal(VTimeInSec(0.5)))
	})

	It("should align to the next tick", func() {
		var at []VTimeInSec

		NewProcess(engine, "Aligner", func(p *Process) {
			p.Wait(1.5)
			p.AlignToTick()
			at = append(at, p.Now())
			p.AlignToTick()
			at = append(at, p.Now())
		})

		Expect(engine.Run()).To(Succeed())
		Expect(at).To(Equal([]VTimeInSec{2, 2}))
	})

	It("should complete an uninterrupted wait", func() {
		var intr *Interrupt
		var at VTimeInSec

		NewProcess(engine, "Sleeper", func(p *Process) {
			intr = p.WaitInterruptible(10)
			at = p.Now()
		})

		Expect(engine.Run()).To(Succeed())
		Expect(intr).To(BeNil())
		Expect(at).To(Equal(VTimeInSec(10)))
	})

	It("should deliver the cause and the remaining time on interrupt", func() {
		var intr *Interrupt
		var at VTimeInSec
		var before, after bool
		var err error

		sleeper := NewProcess(engine, "Sleeper", func(p *Process) {
			intr = p.WaitInterruptible(10)
			at = p.Now()
		})
		NewProcess(engine, "Waker", func(p *Process) {
			p.Wait(4)
			before = sleeper.Interruptible()
			err = sleeper.Interrupt("refill")
			after = sleeper.Interruptible()
		})

		Expect(engine.Run()).To(Succeed())
		Expect(before).To(BeTrue())
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(BeFalse())
		Expect(intr).NotTo(BeNil())
		Expect(intr.Cause).To(Equal("refill"))
		Expect(intr.Remaining).To(Equal(VTimeInSec(6)))
		Expect(at).To(Equal(VTimeInSec(4)))
	})

	It("should refuse to interrupt a process that is not interruptible", func() {
		var err error

		sleeper := NewProcess(engine, "Sleeper", func(p *Process) {
			p.Wait(10)
		})
		NewProcess(engine, "Waker", func(p *Process) {
			p.Wait(4)
			err = sleeper.Interrupt("refill")
		})

		Expect(engine.Run()).To(Succeed())

		var violation *InvariantViolation
		Expect(errors.As(err, &violation)).To(BeTrue())
	})

	It("should passivate and activate", func() {
		var at VTimeInSec

		sleeper := NewProcess(engine, "Sleeper", func(p *Process) {
			p.Passivate()
			at = p.Now()
		})
		NewProcess(engine, "Waker", func(p *Process) {
			p.Wait(3)
			sleeper.Activate()
		})

		Expect(engine.Run()).To(Succeed())
		Expect(at).To(Equal(VTimeInSec(3)))
		Expect(sleeper.Finished()).To(BeTrue())
	})

	It("should stop the engine with the error a process panics with", func() {
		NewProcess(engine, "Dispatcher", func(p *Process) {
			p.Wait(1)
			panic(NewConfigurationError("Dispatcher", "no task"))
		})

		err := engine.Run()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Where).To(Equal("Dispatcher"))
	})

	It("should wrap non-error panics", func() {
		NewProcess(engine, "Broken", func(p *Process) {
			panic("boom")
		})

		err := engine.Run()

		var pp *ProcessPanic
		Expect(errors.As(err, &pp)).To(BeTrue())
		Expect(pp.Process).To(Equal("Broken"))
	})

	It("should reject negative waits", func() {
		NewProcess(engine, "Broken", func(p *Process) {
			p.Wait(-1)
		})

		err := engine.Run()

		var violation *InvariantViolation
		Expect(errors.As(err, &violation)).To(BeTrue())
	})

	It("should kill suspended processes when the simulation finishes", func() {
		looped := 0

		p := NewProcess(engine, "Looper", func(p *Process) {
			for {
				looped++
				p.Wait(1)
			}
		})

		Expect(engine.RunUntil(5)).To(Succeed())
		Expect(looped).To(Equal(6))

		engine.Finished()

		Expect(p.Finished()).To(BeTrue())
	})
})
