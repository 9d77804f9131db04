package line

import (
	"sort"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/stats"
)

// A Line is a registry of everything that makes up a production line. All
// parts share one engine, so a line is run and torn down as a whole.
type Line struct {
	name   string
	engine *sim.SerialEngine
	ids    sim.IDGenerator

	components map[string]Component
	order      []string
	stores     map[string]*Store
	containers map[string]*queueing.Container
	operators  []*HumanOperator
	sinks      []*Sink
	routines   []*Routine
}

// NewLine creates an empty line with its own engine.
func NewLine(name string) *Line {
	sim.NameMustBeValid(name)

	return &Line{
		name:       name,
		engine:     sim.NewSerialEngine(),
		ids:        sim.NewSequentialIDGenerator(),
		components: make(map[string]Component),
		stores:     make(map[string]*Store),
		containers: make(map[string]*queueing.Container),
	}
}

// Name returns the name of the line.
func (l *Line) Name() string {
	return l.name
}

// Engine returns the engine that runs the line.
func (l *Line) Engine() *sim.SerialEngine {
	return l.engine
}

// IDGenerator returns the generator for PCB and stack IDs.
func (l *Line) IDGenerator() sim.IDGenerator {
	return l.ids
}

// Now returns the current time of the line.
func (l *Line) Now() sim.VTimeInSec {
	return l.engine.CurrentTime()
}

// AddComponent registers a component. Names must be unique.
func (l *Line) AddComponent(c Component) error {
	if _, found := l.components[c.Name()]; found {
		return sim.NewConfigurationError(l.name,
			"duplicate component %s", c.Name())
	}

	l.components[c.Name()] = c
	l.order = append(l.order, c.Name())

	switch x := c.(type) {
	case *HumanOperator:
		l.operators = append(l.operators, x)
	case *Sink:
		l.sinks = append(l.sinks, x)
	}

	return nil
}

// AddStore registers a store. Names must be unique.
func (l *Line) AddStore(s *Store) error {
	if _, found := l.stores[s.Name()]; found {
		return sim.NewConfigurationError(l.name, "duplicate store %s", s.Name())
	}

	l.stores[s.Name()] = s

	return nil
}

// AddContainer registers a container. Names must be unique.
func (l *Line) AddContainer(c *queueing.Container) error {
	if _, found := l.containers[c.Name()]; found {
		return sim.NewConfigurationError(l.name,
			"duplicate container %s", c.Name())
	}

	l.containers[c.Name()] = c

	return nil
}

// AddRoutine registers a routine.
func (l *Line) AddRoutine(r *Routine) {
	l.routines = append(l.routines, r)
}

// Component returns the component with the given name.
func (l *Line) Component(name string) (Component, bool) {
	c, found := l.components[name]
	return c, found
}

// Components returns the components in the order they were added.
func (l *Line) Components() []Component {
	components := make([]Component, 0, len(l.order))
	for _, name := range l.order {
		components = append(components, l.components[name])
	}

	return components
}

// Store returns the store with the given name.
func (l *Line) Store(name string) (*Store, bool) {
	s, found := l.stores[name]
	return s, found
}

// Stores returns the stores sorted by name.
func (l *Line) Stores() []*Store {
	stores := make([]*Store, 0, len(l.stores))
	for _, s := range l.stores {
		stores = append(stores, s)
	}

	sort.Slice(stores, func(i, j int) bool {
		return stores[i].Name() < stores[j].Name()
	})

	return stores
}

// Container returns the container with the given name.
func (l *Line) Container(name string) (*queueing.Container, bool) {
	c, found := l.containers[name]
	return c, found
}

// Containers returns the containers sorted by name.
func (l *Line) Containers() []*queueing.Container {
	containers := make([]*queueing.Container, 0, len(l.containers))
	for _, c := range l.containers {
		containers = append(containers, c)
	}

	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Name() < containers[j].Name()
	})

	return containers
}

// Operators returns the operators of the line.
func (l *Line) Operators() []*HumanOperator {
	return append([]*HumanOperator(nil), l.operators...)
}

// Sinks returns the sinks of the line.
func (l *Line) Sinks() []*Sink {
	return append([]*Sink(nil), l.sinks...)
}

// Routines returns the routines of the line.
func (l *Line) Routines() []*Routine {
	return append([]*Routine(nil), l.routines...)
}

// Run advances the line until no event remains at or before horizon. It can
// be called again with a later horizon to continue the same run.
func (l *Line) Run(horizon sim.VTimeInSec) error {
	return l.engine.RunUntil(horizon)
}

// Close stops the processes of the line. The line cannot run afterward.
func (l *Line) Close() {
	l.engine.Finished()
}

// Report summarizes the line at the current time.
func (l *Line) Report() stats.LineReport {
	components := make([]stats.Component, 0, len(l.order))
	for _, c := range l.Components() {
		components = append(components, c)
	}

	sinks := make([]stats.Sink, 0, len(l.sinks))
	for _, s := range l.sinks {
		sinks = append(sinks, s)
	}

	return stats.Collect(l.Now(), components, sinks)
}
