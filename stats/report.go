package stats

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// A Component is anything whose states are accounted for.
type Component interface {
	Name() string
	StateMachine() *stateful.StateMachine
}

// A Sink counts finished PCBs.
type Sink interface {
	Name() string
	Count() int
	AverageCycleTime() sim.VTimeInSec
}

// ComponentReport holds the figures of one component.
type ComponentReport struct {
	Name        string                            `json:"name"`
	State       string                            `json:"state"`
	Dwell       map[stateful.State]sim.VTimeInSec `json:"dwell"`
	Utilization map[stateful.State]float64        `json:"utilization"`
	Energy      float64                           `json:"energy"`
}

// SinkReport holds the figures of one sink.
type SinkReport struct {
	Name              string         `json:"name"`
	Count             int            `json:"count"`
	AverageCycleTime  sim.VTimeInSec `json:"average_cycle_time"`
	ThroughputPerHour float64        `json:"throughput_per_hour"`
}

// A LineReport summarizes a run up to Now.
type LineReport struct {
	Now          sim.VTimeInSec    `json:"now"`
	Components   []ComponentReport `json:"components"`
	Sinks        []SinkReport      `json:"sinks"`
	TotalPCBs    int               `json:"total_pcbs"`
	TotalEnergy  float64           `json:"total_energy"`
	EnergyPerPCB float64           `json:"energy_per_pcb"`
}

// Utilization returns the share of time spent in each state in percent.
func Utilization(
	dwell map[stateful.State]sim.VTimeInSec,
) map[stateful.State]float64 {
	total := sim.VTimeInSec(0)
	for _, d := range dwell {
		total += d
	}

	utilization := make(map[stateful.State]float64, len(dwell))
	for s, d := range dwell {
		if total == 0 {
			utilization[s] = 0
			continue
		}

		utilization[s] = float64(d / total * 100)
	}

	return utilization
}

// Energy returns the energy in joules for the dwell times and the power
// ratings in watts.
func Energy(
	dwell map[stateful.State]sim.VTimeInSec,
	power map[stateful.State]float64,
) float64 {
	energy := 0.0
	for s, d := range dwell {
		energy += float64(d) * power[s]
	}

	return energy
}

// Collect builds the report of the components and sinks at now.
func Collect(
	now sim.VTimeInSec,
	components []Component,
	sinks []Sink,
) LineReport {
	r := LineReport{Now: now}

	for _, c := range components {
		m := c.StateMachine()
		dwell := m.DwellTimes(now)
		energy := Energy(dwell, m.PowerTable())

		r.Components = append(r.Components, ComponentReport{
			Name:        c.Name(),
			State:       string(m.Current()),
			Dwell:       dwell,
			Utilization: Utilization(dwell),
			Energy:      energy,
		})
		r.TotalEnergy += energy
	}

	for _, s := range sinks {
		sr := SinkReport{
			Name:             s.Name(),
			Count:            s.Count(),
			AverageCycleTime: s.AverageCycleTime(),
		}

		if now > 0 {
			sr.ThroughputPerHour = float64(s.Count()) / float64(now) * 3600
		}

		r.Sinks = append(r.Sinks, sr)
		r.TotalPCBs += s.Count()
	}

	if r.TotalPCBs > 0 {
		r.EnergyPerPCB = r.TotalEnergy / float64(r.TotalPCBs)
	}

	return r
}

// Write prints the report as aligned text.
func (r LineReport) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Time elapsed\t%.1f s\n", float64(r.Now))
	fmt.Fprintf(tw, "PCBs finished\t%d\n", r.TotalPCBs)

	for _, s := range r.Sinks {
		fmt.Fprintf(tw, "%s\t%d PCBs\tavg cycle %.2f s\t%.2f PCBs/h\n",
			s.Name, s.Count, float64(s.AverageCycleTime), s.ThroughputPerHour)
	}

	fmt.Fprintln(tw, "\nUtilization")

	for _, c := range r.Components {
		fmt.Fprintf(tw, "%s", c.Name)

		for _, s := range sortedStates(c.Dwell) {
			fmt.Fprintf(tw, "\t%s=%.1f (%.2f%%)",
				s, float64(c.Dwell[s]), c.Utilization[s])
		}

		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "\nEnergy")

	for _, c := range r.Components {
		if c.Energy == 0 {
			continue
		}

		fmt.Fprintf(tw, "%s\t%.3f kJ\n", c.Name, c.Energy/1e3)
	}

	fmt.Fprintf(tw, "Total\t%.3f kJ\n", r.TotalEnergy/1e3)
	fmt.Fprintf(tw, "Per PCB\t%.3f kJ\n", r.EnergyPerPCB/1e3)

	return tw.Flush()
}

func sortedStates(dwell map[stateful.State]sim.VTimeInSec) []stateful.State {
	states := make([]stateful.State, 0, len(dwell))
	for s := range dwell {
		states = append(states, s)
	}

	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	return states
}
