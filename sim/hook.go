package sim

// A HookPos names a point where a Hookable invokes its hooks, such as a
// state change of a component or a put into a store.
type HookPos struct {
	Name string
}

// The engine invokes its hooks around every event it handles. Item is the
// event.
var (
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}
	HookPosAfterEvent  = &HookPos{Name: "AfterEvent"}
)

// HookCtx describes one hook invocation. What Item and Detail carry depends
// on Pos.
type HookCtx struct {
	Domain Hookable
	Now    VTimeInSec
	Pos    *HookPos
	Item   any
	Detail any
}

// A Hook observes a line without taking part in it. Func must not schedule
// events or change the state of what it observes.
type Hook interface {
	Func(ctx HookCtx)
}

// Hookable is implemented by everything a Hook can watch.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
}

// HookableBase keeps a list of hooks. Embed it to implement Hookable.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook adds hook. Adding the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hooks {
		if existing == hook {
			panic(NewConfigurationError("hooks", "hook %T added twice", hook))
		}
	}

	h.hooks = append(h.hooks, hook)
}

// NumHooks returns how many hooks were added. Callers check it to skip
// building a HookCtx nobody reads.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook calls the hooks in the order they were added.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
