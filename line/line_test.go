package line

import (
	"bytes"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

var _ = Describe("Line", func() {
	var (
		l       *Line
		machine *Machine
		sink    *Sink
	)

	BeforeEach(func() {
		l = NewLine("Line")
		engine := l.Engine()

		in := MakeStoreBuilder().WithTimeTeller(engine).Build("Line.In")
		out := MakeStoreBuilder().
			WithCapacity(math.MaxInt).
			WithTimeTeller(engine).
			Build("Line.Out")

		source := MakeSourceBuilder().
			WithEngine(engine).
			WithOutput(in).
			WithIDGenerator(l.IDGenerator()).
			WithDelay(10).
			Build("Line.Source")
		machine = MakeMachineBuilder().
			WithEngine(engine).
			WithInput(in).
			WithOutput(out).
			WithProcessingTime(FixedTime(5)).
			WithPowerTable(map[stateful.State]float64{StateBusy: 100}).
			Build("Line.Machine")
		sink = MakeSinkBuilder().
			WithEngine(engine).
			WithInput(out).
			Build("Line.Sink")

		Expect(l.AddStore(in)).To(Succeed())
		Expect(l.AddStore(out)).To(Succeed())
		Expect(l.AddComponent(source)).To(Succeed())
		Expect(l.AddComponent(machine)).To(Succeed())
		Expect(l.AddComponent(sink)).To(Succeed())
	})

	AfterEach(func() {
		l.Close()
	})

	It("should refuse duplicate names", func() {
		err := l.AddComponent(machine)
		Expect(err).To(BeAssignableToTypeOf(&sim.ConfigurationError{}))

		s, _ := l.Store("Line.In")
		Expect(l.AddStore(s)).NotTo(Succeed())

		c := queueing.MakeContainerBuilder().WithCapacity(10).Build("Line.Glue")
		Expect(l.AddContainer(c)).To(Succeed())
		Expect(l.AddContainer(c)).NotTo(Succeed())
	})

	It("should look parts up by name", func() {
		c, found := l.Component("Line.Machine")
		Expect(found).To(BeTrue())
		Expect(c).To(BeIdenticalTo(machine))

		_, found = l.Component("Line.Nothing")
		Expect(found).To(BeFalse())

		Expect(l.Sinks()).To(ConsistOf(sink))
		Expect(l.Stores()).To(HaveLen(2))
		Expect(l.Stores()[0].Name()).To(Equal("Line.In"))
	})

	It("should run in steps and report", func() {
		Expect(l.Run(50)).To(Succeed())
		Expect(l.Now()).To(Equal(sim.VTimeInSec(50)))
		Expect(sink.Count()).To(Equal(5))

		Expect(l.Run(100)).To(Succeed())
		Expect(sink.Count()).To(Equal(10))

		r := l.Report()
		Expect(r.Now).To(Equal(sim.VTimeInSec(100)))
		Expect(r.TotalPCBs).To(Equal(10))
		Expect(r.TotalEnergy).To(BeNumerically("~", 5000, 1e-9))
		Expect(r.EnergyPerPCB).To(BeNumerically("~", 500, 1e-9))
		Expect(r.Sinks[0].ThroughputPerHour).To(BeNumerically("~", 360, 1e-9))

		names := []string{}
		for _, c := range r.Components {
			names = append(names, c.Name)
		}
		Expect(names).To(Equal(
			[]string{"Line.Source", "Line.Machine", "Line.Sink"}))

		buf := &bytes.Buffer{}
		Expect(r.Write(buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Line.Machine"))
		Expect(buf.String()).To(ContainSubstring("PCBs finished"))
	})
})
