package datarecording

import (
	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
	"github.com/smtline/smtline/sim/stateful"
)

// The tables a LineRecorder writes.
const (
	StateChangeTable = "state_change"
	CompletionTable  = "pcb_completion"
	BufferTable      = "buffer_event"
)

// StateChangeEntry is a row of the state change table.
type StateChangeEntry struct {
	Time      float64
	Component string
	FromState string
	ToState   string
}

// CompletionEntry is a row of the completion table. There is one row for
// every item a sink consumes.
type CompletionEntry struct {
	Time      float64
	Sink      string
	Item      string
	Count     int
	CycleTime float64
}

// BufferEntry is a row of the buffer table. Size is the number of items in
// the buffer after the event.
type BufferEntry struct {
	Time   float64
	Buffer string
	Event  string
	Size   int
}

// A LineRecorder is a hook that writes what happens on a line into a
// DataRecorder.
type LineRecorder struct {
	recorder DataRecorder
	buffers  bool
}

// NewLineRecorder creates a LineRecorder and the tables it writes. Buffer
// events are frequent, so they are only recorded if withBuffers is set.
func NewLineRecorder(recorder DataRecorder, withBuffers bool) *LineRecorder {
	r := &LineRecorder{recorder: recorder, buffers: withBuffers}

	recorder.CreateTable(StateChangeTable, StateChangeEntry{})
	recorder.CreateTable(CompletionTable, CompletionEntry{})

	if withBuffers {
		recorder.CreateTable(BufferTable, BufferEntry{})
	}

	return r
}

// Attach hooks the recorder to every component, sink and store of the line.
func (r *LineRecorder) Attach(l *line.Line) {
	for _, c := range l.Components() {
		c.StateMachine().AcceptHook(r)
	}

	for _, s := range l.Sinks() {
		s.AcceptHook(r)
	}

	if !r.buffers {
		return
	}

	for _, s := range l.Stores() {
		s.AcceptHook(r)
	}
}

// Func records one hook invocation.
func (r *LineRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case stateful.HookPosStateChange:
		change := ctx.Item.(stateful.StateChange)
		r.recorder.InsertData(StateChangeTable, StateChangeEntry{
			Time:      float64(change.Time),
			Component: change.Component,
			FromState: string(change.From),
			ToState:   string(change.To),
		})
	case line.HookPosSinkConsume:
		item := ctx.Item.(line.Item)
		r.recorder.InsertData(CompletionTable, CompletionEntry{
			Time:      float64(ctx.Now),
			Sink:      ctx.Domain.(sim.Named).Name(),
			Item:      item.ID(),
			Count:     item.Count(),
			CycleTime: float64(ctx.Detail.(sim.VTimeInSec)),
		})
	case queueing.HookPosStorePut, queueing.HookPosStoreGet:
		r.recordBuffer(ctx)
	}
}

func (r *LineRecorder) recordBuffer(ctx sim.HookCtx) {
	buf, ok := ctx.Domain.(queueing.Buffer)
	if !ok || !r.buffers {
		return
	}

	r.recorder.InsertData(BufferTable, BufferEntry{
		Time:   float64(ctx.Now),
		Buffer: buf.Name(),
		Event:  ctx.Pos.Name,
		Size:   buf.Size(),
	})
}
