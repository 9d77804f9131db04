package queueing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
)

var _ = Describe("Container", func() {
	var (
		engine    *sim.SerialEngine
		container *Container
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		container = MakeContainerBuilder().
			WithCapacity(100).
			WithInitLevel(10).
			WithTimeTeller(engine).
			Build("Solder")
	})

	AfterEach(func() {
		engine.Finished()
	})

	It("should cap the level at the capacity", func() {
		container.Put(500)
		Expect(container.Level()).To(Equal(100.0))
		Expect(container.Capacity()).To(Equal(100.0))
	})

	It("should refill", func() {
		container.Refill()
		Expect(container.Level()).To(Equal(100.0))
	})

	It("should treat zero amounts as no-ops", func() {
		sim.NewProcess(engine, "Getter", func(p *sim.Process) {
			container.Get(p, 0)
		})
		container.Put(0)

		Expect(engine.Run()).To(Succeed())
		Expect(container.Level()).To(Equal(10.0))
	})

	It("should reject negative amounts", func() {
		Expect(func() { container.Put(-1) }).To(
			PanicWith(BeAssignableToTypeOf(&sim.InvariantViolation{})))
	})

	It("should refuse an initial level above the capacity", func() {
		Expect(func() {
			MakeContainerBuilder().
				WithCapacity(10).
				WithInitLevel(20).
				Build("Solder")
		}).To(PanicWith(BeAssignableToTypeOf(&sim.ConfigurationError{})))
	})

	It("should complete a get once the level reaches the amount", func() {
		var at sim.VTimeInSec

		sim.NewProcess(engine, "Getter", func(p *sim.Process) {
			container.Get(p, 30)
			at = p.Now()
		})
		sim.NewProcess(engine, "Putter", func(p *sim.Process) {
			p.Wait(2)
			container.Put(15)
			p.Wait(3)
			container.Put(10)
		})

		Expect(engine.Run()).To(Succeed())
		Expect(at).To(Equal(sim.VTimeInSec(5)))
		Expect(container.Level()).To(Equal(5.0))
	})

	It("should not let later getters overtake the head getter", func() {
		container = MakeContainerBuilder().
			WithCapacity(100).
			Build("Adhesive")

		served := map[string]sim.VTimeInSec{}

		sim.NewProcess(engine, "Big", func(p *sim.Process) {
			container.Get(p, 30)
			served["Big"] = p.Now()
		})
		sim.NewProcess(engine, "Small", func(p *sim.Process) {
			container.Get(p, 5)
			served["Small"] = p.Now()
		})
		sim.NewProcess(engine, "Putter", func(p *sim.Process) {
			p.Wait(1)
			container.Put(10)
			p.Wait(1)
			container.Put(25)
		})

		Expect(engine.RunUntil(1)).To(Succeed())
		Expect(container.NumWaiting()).To(Equal(2))
		Expect(container.Level()).To(Equal(10.0))

		Expect(engine.Run()).To(Succeed())
		Expect(served).To(Equal(map[string]sim.VTimeInSec{
			"Big":   2,
			"Small": 2,
		}))
		Expect(container.Level()).To(Equal(0.0))
	})
})
