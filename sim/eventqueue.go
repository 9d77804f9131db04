package sim

import (
	"container/heap"
	"sync"
)

// An EventQueue orders events by time. Events due at the same time leave in
// the order they were pushed, which keeps runs deterministic.
type EventQueue struct {
	mu      sync.Mutex
	entries eventHeap
	pushed  uint64
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push queues evt.
func (q *EventQueue) Push(evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.entries, queueEntry{evt: evt, seq: q.pushed})
	q.pushed++
}

// Pop removes and returns the next event, or nil if the queue is empty.
func (q *EventQueue) Pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}

	return heap.Pop(&q.entries).(queueEntry).evt
}

// Peek returns the next event without removing it.
func (q *EventQueue) Peek() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}

	return q.entries[0].evt
}

// Len returns the number of queued events. The monitor reads it while the
// line runs.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

type queueEntry struct {
	evt Event
	seq uint64
}

func (e queueEntry) before(o queueEntry) bool {
	if t, ot := e.evt.Time(), o.evt.Time(); t != ot {
		return t < ot
	}

	return e.seq < o.seq
}

type eventHeap []queueEntry

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queueEntry))
}

func (h *eventHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]

	return last
}
