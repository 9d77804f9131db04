package stats

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

type namedMachine struct {
	m *stateful.StateMachine
}

func (n namedMachine) Name() string {
	return n.m.Name()
}

func (n namedMachine) StateMachine() *stateful.StateMachine {
	return n.m
}

type fixedSink struct {
	count     int
	cycleTime sim.VTimeInSec
}

func (s fixedSink) Name() string {
	return "Sink"
}

func (s fixedSink) Count() int {
	return s.count
}

func (s fixedSink) AverageCycleTime() sim.VTimeInSec {
	return s.cycleTime
}

var _ = Describe("LineReport", func() {
	It("should compute the utilization in percent", func() {
		u := Utilization(map[stateful.State]sim.VTimeInSec{
			"busy": 30,
			"idle": 10,
		})

		Expect(u["busy"]).To(BeNumerically("~", 75, 1e-9))
		Expect(u["idle"]).To(BeNumerically("~", 25, 1e-9))
	})

	It("should not divide by zero", func() {
		u := Utilization(map[stateful.State]sim.VTimeInSec{"idle": 0})

		Expect(u["idle"]).To(Equal(0.0))
	})

	It("should compute the energy from power ratings", func() {
		e := Energy(
			map[stateful.State]sim.VTimeInSec{"busy": 30, "idle": 10},
			map[stateful.State]float64{"busy": 100},
		)

		Expect(e).To(Equal(3000.0))
	})

	It("should collect the figures of a line", func() {
		m := stateful.MakeBuilder().
			WithStates("idle", "busy").
			WithPower("busy", 200).
			WithPower("idle", 10).
			Build("Oven")
		m.ChangeState(20, "busy")

		r := Collect(100,
			[]Component{namedMachine{m: m}},
			[]Sink{fixedSink{count: 4, cycleTime: 12.5}})

		Expect(r.Components).To(HaveLen(1))
		Expect(r.Components[0].State).To(Equal("busy"))
		Expect(r.Components[0].Energy).To(Equal(16200.0))
		Expect(r.TotalPCBs).To(Equal(4))
		Expect(r.EnergyPerPCB).To(Equal(4050.0))
		Expect(r.Sinks[0].ThroughputPerHour).
			To(BeNumerically("~", 144, 1e-9))

		buf := &bytes.Buffer{}
		Expect(r.Write(buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Oven"))
		Expect(buf.String()).To(ContainSubstring("busy=80.0 (80.00%)"))
		Expect(buf.String()).To(ContainSubstring("avg cycle 12.50 s"))
	})
})
