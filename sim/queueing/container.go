package queueing

import (
	"math"

	"github.com/smtline/smtline/sim"
)

// HookPosContainerGet marks when an amount is taken from a container. The
// hook detail is the amount.
var HookPosContainerGet = &sim.HookPos{Name: "Container Get"}

// HookPosContainerPut marks when an amount is added to a container. The hook
// detail is the amount actually added.
var HookPosContainerPut = &sim.HookPos{Name: "Container Put"}

type containerGetter struct {
	p      *sim.Process
	amount float64
}

// A Container holds a consumable quantity, such as solder paste, between 0
// and its capacity. Gets never take a partial amount. Blocked getters are
// served strictly in order: a getter that cannot be satisfied holds back the
// ones behind it.
type Container struct {
	sim.HookableBase

	name       string
	capacity   float64
	level      float64
	timeTeller sim.TimeTeller

	getters []*containerGetter
}

// ContainerBuilder builds containers.
type ContainerBuilder struct {
	capacity   float64
	initLevel  float64
	timeTeller sim.TimeTeller
}

// MakeContainerBuilder creates a ContainerBuilder.
func MakeContainerBuilder() ContainerBuilder {
	return ContainerBuilder{capacity: math.Inf(1)}
}

// WithCapacity sets the maximum level.
func (b ContainerBuilder) WithCapacity(capacity float64) ContainerBuilder {
	b.capacity = capacity
	return b
}

// WithInitLevel sets the level the container starts with.
func (b ContainerBuilder) WithInitLevel(level float64) ContainerBuilder {
	b.initLevel = level
	return b
}

// WithTimeTeller sets the clock used to stamp hook invocations.
func (b ContainerBuilder) WithTimeTeller(t sim.TimeTeller) ContainerBuilder {
	b.timeTeller = t
	return b
}

// Build creates a container. It panics with a ConfigurationError if the
// capacity is not positive or the initial level is out of range.
func (b ContainerBuilder) Build(name string) *Container {
	sim.NameMustBeValid(name)

	if b.capacity <= 0 {
		panic(sim.NewConfigurationError(name,
			"capacity must be positive, got %g", b.capacity))
	}

	if b.initLevel < 0 || b.initLevel > b.capacity {
		panic(sim.NewConfigurationError(name,
			"initial level %g out of [0, %g]", b.initLevel, b.capacity))
	}

	return &Container{
		name:       name,
		capacity:   b.capacity,
		level:      b.initLevel,
		timeTeller: b.timeTeller,
	}
}

// Name returns the name of the container.
func (c *Container) Name() string {
	return c.name
}

// Level returns the current quantity.
func (c *Container) Level() float64 {
	return c.level
}

// Capacity returns the maximum quantity.
func (c *Container) Capacity() float64 {
	return c.capacity
}

// NumWaiting returns the number of processes blocked in Get.
func (c *Container) NumWaiting() int {
	return len(c.getters)
}

// Get takes amount from the container, blocking p until the whole amount is
// available and every earlier getter has been served.
func (c *Container) Get(p *sim.Process, amount float64) {
	c.mustBeValidAmount(amount)

	if amount == 0 {
		return
	}

	if len(c.getters) == 0 && c.level >= amount {
		c.take(amount)
		return
	}

	c.getters = append(c.getters, &containerGetter{p: p, amount: amount})
	p.Passivate()
}

// Put adds amount to the container. The level is capped at the capacity and
// the excess is discarded. Put never blocks.
func (c *Container) Put(amount float64) {
	c.mustBeValidAmount(amount)

	if amount == 0 {
		return
	}

	added := math.Min(amount, c.capacity-c.level)
	c.level += added
	c.invokeHook(HookPosContainerPut, added)

	c.serveGetters()
}

// Refill fills the container up to its capacity.
func (c *Container) Refill() {
	c.Put(c.capacity - c.level)
}

func (c *Container) serveGetters() {
	for len(c.getters) > 0 {
		g := c.getters[0]
		if c.level < g.amount {
			return
		}

		c.getters = c.getters[1:]
		c.take(g.amount)
		g.p.Activate()
	}
}

func (c *Container) take(amount float64) {
	c.level -= amount
	c.invokeHook(HookPosContainerGet, amount)
}

func (c *Container) mustBeValidAmount(amount float64) {
	if amount < 0 || math.IsNaN(amount) {
		panic(sim.NewInvariantViolation(c.name, "invalid amount %g", amount))
	}
}

func (c *Container) invokeHook(pos *sim.HookPos, amount float64) {
	if c.NumHooks() == 0 {
		return
	}

	ctx := sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   c.level,
		Detail: amount,
	}

	if c.timeTeller != nil {
		ctx.Now = c.timeTeller.CurrentTime()
	}

	c.InvokeHook(ctx)
}
