package monitoring

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim"
)

// A ProgressBar is shown on the dashboard. A Total of 0 means the bar has no
// end and only counts.
type ProgressBar struct {
	mu        sync.Mutex
	id        string
	name      string
	startTime time.Time
	total     uint64
	finished  uint64
}

type progressBarJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// Finished returns the current count.
func (b *ProgressBar) Finished() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.finished
}

// Total returns the count at which the bar is full.
func (b *ProgressBar) Total() uint64 {
	return b.total
}

func (b *ProgressBar) add(n uint64) {
	b.mu.Lock()
	b.finished += n
	b.mu.Unlock()
}

func (b *ProgressBar) set(n uint64) {
	b.mu.Lock()
	b.finished = n
	b.mu.Unlock()
}

// MarshalJSON snapshots the bar, which the simulation may be updating.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return json.Marshal(progressBarJSON{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.startTime,
		Total:     b.total,
		Finished:  b.finished,
	})
}

// horizonProgress moves a bar with the line clock.
type horizonProgress struct {
	bar *ProgressBar
}

func (h horizonProgress) Func(ctx sim.HookCtx) {
	if ctx.Pos == sim.HookPosAfterEvent {
		h.bar.set(uint64(ctx.Now))
	}
}

// outputProgress counts the PCBs the sinks consume.
type outputProgress struct {
	bar *ProgressBar
}

func (h outputProgress) Func(ctx sim.HookCtx) {
	if ctx.Pos != line.HookPosSinkConsume {
		return
	}

	if item, ok := ctx.Item.(line.Item); ok {
		h.bar.add(uint64(item.Count()))
	}
}
