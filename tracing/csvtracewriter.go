// Package tracing writes the state history of line components into files
// that can be loaded into spreadsheets and plotting tools.
package tracing

import (
	"fmt"
	"os"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

type interval struct {
	component string
	state     stateful.State
	start     sim.VTimeInSec
	end       sim.VTimeInSec
}

// CSVTraceWriter writes every state interval of the state machines it
// watches into a CSV file, one row per interval.
type CSVTraceWriter struct {
	path string
	file *os.File

	machines []*stateful.StateMachine
	since    map[string]sim.VTimeInSec
	rows     []interval

	bufferSize int
	closeOnce  sync.Once
}

// NewCSVTraceWriter creates a CSVTraceWriter that writes into path.csv. An
// empty path picks a unique name.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		since:      make(map[string]sim.VTimeInSec),
		bufferSize: 1000,
	}
}

// Path returns the name of the CSV file.
func (t *CSVTraceWriter) Path() string {
	return t.path + ".csv"
}

// Init creates the CSV file. It refuses to overwrite an existing file. The
// file is flushed and closed when the program exits through atexit.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = sim.NewUniqueIDGenerator("smtline_trace_").Generate()
	}

	filename := t.Path()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	t.file = file

	fmt.Fprintf(file, "Component, State, Start, End\n")

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			panic(err)
		}
	})

	return nil
}

// Watch starts tracing m from now.
func (t *CSVTraceWriter) Watch(m *stateful.StateMachine, now sim.VTimeInSec) {
	if _, found := t.since[m.Name()]; found {
		return
	}

	t.since[m.Name()] = now
	t.machines = append(t.machines, m)

	m.AcceptHook(t)
}

// Func records the interval a state change closes.
func (t *CSVTraceWriter) Func(ctx sim.HookCtx) {
	if ctx.Pos != stateful.HookPosStateChange {
		return
	}

	change := ctx.Item.(stateful.StateChange)
	t.write(interval{
		component: change.Component,
		state:     change.From,
		start:     t.since[change.Component],
		end:       change.Time,
	})
	t.since[change.Component] = change.Time
}

func (t *CSVTraceWriter) write(i interval) {
	if i.end <= i.start {
		return
	}

	t.rows = append(t.rows, i)
	if len(t.rows) >= t.bufferSize {
		t.Flush()
	}
}

// Finish writes the intervals that are still open at now. The watched
// machines must not change state afterward.
func (t *CSVTraceWriter) Finish(now sim.VTimeInSec) {
	for _, m := range t.machines {
		t.write(interval{
			component: m.Name(),
			state:     m.Current(),
			start:     t.since[m.Name()],
			end:       now,
		})
		t.since[m.Name()] = now
	}

	t.Flush()
}

// Flush writes the buffered intervals into the file.
func (t *CSVTraceWriter) Flush() {
	if t.file == nil {
		return
	}

	for _, i := range t.rows {
		fmt.Fprintf(t.file, "%s, %s, %.2f, %.2f\n",
			i.component, i.state, float64(i.start), float64(i.end))
	}

	t.rows = nil
}

// Close flushes and closes the file. Closing more than once does nothing.
func (t *CSVTraceWriter) Close() error {
	var err error

	t.closeOnce.Do(func() {
		t.Flush()

		if t.file != nil {
			err = t.file.Close()
		}
	})

	return err
}
