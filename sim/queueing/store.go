package queueing

import (
	"github.com/smtline/smtline/sim"
)

// HookPosStorePut marks when an item enters a store.
var HookPosStorePut = &sim.HookPos{Name: "Store Put"}

// HookPosStoreGet marks when an item leaves a store.
var HookPosStoreGet = &sim.HookPos{Name: "Store Get"}

// A Buffer is anything that holds a bounded number of items.
type Buffer interface {
	sim.Named
	sim.Hookable

	Size() int
	Capacity() int
}

type storeGetter[T any] struct {
	p    *sim.Process
	item T
	done bool
}

type storePutter[T any] struct {
	p    *sim.Process
	item T
	done bool
}

// A Store is a bounded FIFO queue shared by processes. Get blocks while the
// store is empty and Put blocks while it is full. Blocked processes of each
// kind are served in the order they blocked.
type Store[T any] struct {
	sim.HookableBase

	name       string
	capacity   int
	timeTeller sim.TimeTeller

	items   []T
	getters []*storeGetter[T]
	putters []*storePutter[T]
}

// StoreBuilder builds stores.
type StoreBuilder[T any] struct {
	capacity   int
	timeTeller sim.TimeTeller
}

// MakeStoreBuilder creates a StoreBuilder with a capacity of 1.
func MakeStoreBuilder[T any]() StoreBuilder[T] {
	return StoreBuilder[T]{capacity: 1}
}

// WithCapacity sets the maximum number of items in the store.
func (b StoreBuilder[T]) WithCapacity(capacity int) StoreBuilder[T] {
	b.capacity = capacity
	return b
}

// WithTimeTeller sets the clock used to stamp hook invocations.
func (b StoreBuilder[T]) WithTimeTeller(t sim.TimeTeller) StoreBuilder[T] {
	b.timeTeller = t
	return b
}

// Build creates a store. It panics with a ConfigurationError if the capacity
// is not positive.
func (b StoreBuilder[T]) Build(name string) *Store[T] {
	sim.NameMustBeValid(name)

	if b.capacity < 1 {
		panic(sim.NewConfigurationError(name,
			"capacity must be at least 1, got %d", b.capacity))
	}

	return &Store[T]{
		name:       name,
		capacity:   b.capacity,
		timeTeller: b.timeTeller,
	}
}

// Name returns the name of the store.
func (s *Store[T]) Name() string {
	return s.name
}

// Capacity returns the maximum number of items the store can hold.
func (s *Store[T]) Capacity() int {
	return s.capacity
}

// Size returns the number of items in the store.
func (s *Store[T]) Size() int {
	return len(s.items)
}

// CanGet tells whether a get would complete without blocking.
func (s *Store[T]) CanGet() bool {
	return len(s.items) > 0
}

// CanPut tells whether a put would complete without blocking.
func (s *Store[T]) CanPut() bool {
	return len(s.getters) > 0 ||
		(len(s.items) < s.capacity && len(s.putters) == 0)
}

// Peek returns the oldest item without removing it.
func (s *Store[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}

	return s.items[0], true
}

// Items returns a copy of the items in the store, oldest first.
func (s *Store[T]) Items() []T {
	items := make([]T, len(s.items))
	copy(items, s.items)

	return items
}

// Get removes the oldest item, blocking p while the store is empty.
func (s *Store[T]) Get(p *sim.Process) T {
	if item, ok := s.TryGet(); ok {
		return item
	}

	g := &storeGetter[T]{p: p}
	s.getters = append(s.getters, g)
	p.Passivate()

	if !g.done {
		panic(sim.NewInvariantViolation(s.name,
			"getter %s resumed without an item", p.Name()))
	}

	return g.item
}

// TryGet removes the oldest item if there is one.
func (s *Store[T]) TryGet() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}

	item := s.items[0]
	s.items = s.items[1:]
	s.invokeHook(HookPosStoreGet, item)

	s.admitPutter()

	return item, true
}

// Put adds an item, blocking p while the store is full.
func (s *Store[T]) Put(p *sim.Process, item T) {
	if s.offer(item) {
		return
	}

	putter := &storePutter[T]{p: p, item: item}
	s.putters = append(s.putters, putter)
	p.Passivate()

	if !putter.done {
		panic(sim.NewInvariantViolation(s.name,
			"putter %s resumed without placing its item", p.Name()))
	}
}

// Push adds an item without blocking. Pushing into a full store is an
// InvariantViolation; check CanPut first.
func (s *Store[T]) Push(item T) {
	if !s.offer(item) {
		panic(sim.NewInvariantViolation(s.name, "store overflow"))
	}
}

func (s *Store[T]) offer(item T) bool {
	if len(s.getters) > 0 {
		g := s.getters[0]
		s.getters = s.getters[1:]

		s.invokeHook(HookPosStorePut, item)
		s.invokeHook(HookPosStoreGet, item)

		g.item = item
		g.done = true
		g.p.Activate()

		return true
	}

	if len(s.items) < s.capacity && len(s.putters) == 0 {
		s.items = append(s.items, item)
		s.invokeHook(HookPosStorePut, item)

		return true
	}

	return false
}

func (s *Store[T]) admitPutter() {
	if len(s.putters) == 0 || len(s.items) >= s.capacity {
		return
	}

	putter := s.putters[0]
	s.putters = s.putters[1:]

	s.items = append(s.items, putter.item)
	s.invokeHook(HookPosStorePut, putter.item)

	putter.done = true
	putter.p.Activate()
}

func (s *Store[T]) invokeHook(pos *sim.HookPos, item T) {
	if s.NumHooks() == 0 {
		return
	}

	ctx := sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   item,
	}

	if s.timeTeller != nil {
		ctx.Now = s.timeTeller.CurrentTime()
	}

	s.InvokeHook(ctx)
}
