package monitoring

import (
	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim"
)

// componentView is what the component endpoints serialize. Components hold
// processes and item functions, which cannot be serialized, so the monitor
// copies the figures worth showing into plain fields.
type componentView struct {
	Name       string
	State      string
	Checkpoint float64
	Energy     float64
	Dwell      map[string]float64
	Processed  int
	Input      *storeView
	Output     *storeView
}

type storeView struct {
	Name     string
	Size     int
	Capacity int
}

type connected interface {
	Input() *line.Store
	Output() *line.Store
}

func newStoreView(s *line.Store) *storeView {
	if s == nil {
		return nil
	}

	return &storeView{Name: s.Name(), Size: s.Size(), Capacity: s.Capacity()}
}

func viewComponent(c line.Component, now sim.VTimeInSec) componentView {
	sm := c.StateMachine()

	v := componentView{
		Name:       c.Name(),
		State:      string(sm.Current()),
		Checkpoint: float64(sm.Checkpoint()),
		Energy:     sm.Energy(now),
		Dwell:      make(map[string]float64),
	}

	for s, d := range sm.DwellTimes(now) {
		v.Dwell[string(s)] = float64(d)
	}

	switch x := c.(type) {
	case *line.Machine:
		v.Processed = x.Processed()
	case *line.Sink:
		v.Processed = x.Count()
	}

	if x, ok := c.(connected); ok {
		v.Input = newStoreView(x.Input())
		v.Output = newStoreView(x.Output())
	}

	return v
}
