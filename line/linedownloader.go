package line

import (
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/stateful"
)

// A LineDownloader collects PCBs from the line one by one and loads them
// into stacks.
type LineDownloader struct {
	name      string
	engine    sim.Engine
	proc      *sim.Process
	states    *stateful.StateMachine
	input     *Store
	output    *Store
	ids       sim.IDGenerator
	startTime sim.VTimeInSec
	stackSize int

	stacked int
}

// LineDownloaderBuilder builds line downloaders.
type LineDownloaderBuilder struct {
	engine    sim.Engine
	input     *Store
	output    *Store
	ids       sim.IDGenerator
	startTime sim.VTimeInSec
	stackSize int
}

// MakeLineDownloaderBuilder creates a LineDownloaderBuilder for stacks of 10.
func MakeLineDownloaderBuilder() LineDownloaderBuilder {
	return LineDownloaderBuilder{stackSize: 10}
}

// WithEngine sets the engine the downloader runs on.
func (b LineDownloaderBuilder) WithEngine(e sim.Engine) LineDownloaderBuilder {
	b.engine = e
	return b
}

// WithInput sets the store single PCBs arrive at.
func (b LineDownloaderBuilder) WithInput(s *Store) LineDownloaderBuilder {
	b.input = s
	return b
}

// WithOutput sets the store full stacks are placed on.
func (b LineDownloaderBuilder) WithOutput(s *Store) LineDownloaderBuilder {
	b.output = s
	return b
}

// WithIDGenerator sets how stack IDs are generated.
func (b LineDownloaderBuilder) WithIDGenerator(
	g sim.IDGenerator,
) LineDownloaderBuilder {
	b.ids = g
	return b
}

// WithStartTime sets when the downloader starts working.
func (b LineDownloaderBuilder) WithStartTime(
	t sim.VTimeInSec,
) LineDownloaderBuilder {
	b.startTime = t
	return b
}

// WithStackSize sets the number of PCBs per stack.
func (b LineDownloaderBuilder) WithStackSize(n int) LineDownloaderBuilder {
	b.stackSize = n
	return b
}

// Build creates the downloader and starts its process.
func (b LineDownloaderBuilder) Build(name string) *LineDownloader {
	sim.NameMustBeValid(name)
	mustHaveEngine(name, b.engine)

	if b.input == nil || b.output == nil {
		panic(sim.NewConfigurationError(name, "input and output must be set"))
	}

	if b.stackSize < 1 {
		panic(sim.NewConfigurationError(name,
			"stack size must be at least 1, got %d", b.stackSize))
	}

	ids := b.ids
	if ids == nil {
		ids = sim.NewSequentialIDGenerator()
	}

	d := &LineDownloader{
		name:      name,
		engine:    b.engine,
		input:     b.input,
		output:    b.output,
		ids:       ids,
		startTime: b.startTime,
		stackSize: b.stackSize,
		states: stateful.MakeBuilder().
			WithStates(StateWaiting, StateBlocked).
			WithStartTime(b.engine.CurrentTime()).
			Build(name),
	}

	d.proc = sim.NewProcess(b.engine, name, d.behavior)

	return d
}

// Name returns the name of the downloader.
func (d *LineDownloader) Name() string {
	return d.name
}

// StateMachine returns the state machine of the downloader.
func (d *LineDownloader) StateMachine() *stateful.StateMachine {
	return d.states
}

// Stacked returns the number of PCBs loaded into stacks that left the
// downloader.
func (d *LineDownloader) Stacked() int {
	return d.stacked
}

func (d *LineDownloader) behavior(p *sim.Process) {
	p.Wait(d.startTime)

	for {
		d.states.ChangeState(p.Now(), StateWaiting)

		pcbs := make([]*PCB, 0, d.stackSize)
		createdAt := sim.VTimeInSec(-1)

		for len(pcbs) < d.stackSize {
			p.WaitUntil(d.input.CanGet)

			item, _ := d.input.TryGet()
			logf(p.Now(), d.name, "picked up %v from %s", item, d.input.Name())

			pcbs = append(pcbs, flatten(item)...)

			if createdAt < 0 || item.CreationTime() < createdAt {
				createdAt = item.CreationTime()
			}
		}

		stack := NewStack(d.ids.Generate(), pcbs, createdAt)

		d.states.ChangeState(p.Now(), StateBlocked)
		d.output.Put(p, stack)
		d.stacked += stack.Count()
		logf(p.Now(), d.name, "placed %v on %s", stack, d.output.Name())
	}
}

func flatten(item Item) []*PCB {
	switch it := item.(type) {
	case *PCB:
		return []*PCB{it}
	case *Stack:
		return it.PCBs()
	default:
		panic(sim.NewInvariantViolation("downloader",
			"unknown item type %T", item))
	}
}
