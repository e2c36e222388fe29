// Package state holds the Context: the per-run root that owns the shared
// state map, the event timeline, the waiter registry, and the handles to
// everything a rule runner needs to act (bus, cluster, config, suite).
package state

import (
	"sync"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/cluster"
)

// Waiter is a registered task handle to be cancelled when a specific
// state write occurs.
type Waiter struct {
	Rule   string
	Cancel func()
}

// Context is the per-run root. It exclusively owns its state map,
// timeline, and waiter registry for the duration of a run; the Bus and
// cluster handle are shared references.
//
// All mutation happens from goroutines spawned by the test driver and
// rule runners; Mutex serializes access, matching the single-mutex
// design called for by a parallel-runtime implementation of the source's
// cooperative single-thread model.
type Context struct {
	mu sync.Mutex

	states    map[string]string
	timeline  []bus.Event
	waiters   map[string][]Waiter
	taskCache map[string]interface{}

	Bus     *bus.Bus
	Cluster cluster.Model

	// Interval is the rule-entry poll period (config.interval, default 5s).
	Interval int

	// Suite holds the merged rules.Suite this run is executing, typed as
	// interface{} so this package does not import internal/rules (which
	// itself imports state for condition evaluation). Set by the driver
	// after New; callers that need it type-assert to rules.Suite.
	Suite interface{}

	// ConfigPath is the configured search path (config.path), surfaced to
	// tasks as part of their public view (spec §4.2).
	ConfigPath string
}

// New creates an empty Context wired to bus and cluster. It subscribes a
// default handler to the bus that copies every event into the timeline.
func New(b *bus.Bus, c cluster.Model, intervalSeconds int) *Context {
	ctx := &Context{
		states:    make(map[string]string),
		waiters:   make(map[string][]Waiter),
		taskCache: make(map[string]interface{}),
		Bus:       b,
		Cluster:   c,
		Interval:  intervalSeconds,
	}
	b.Subscribe(func(e bus.Event) {
		ctx.mu.Lock()
		ctx.timeline = append(ctx.timeline, e)
		ctx.mu.Unlock()
	}, bus.Prefixed(""))
	return ctx
}

// GetState returns the current value for name, or "" if it has never
// been set (the "pending" / absent state).
func (c *Context) GetState(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[name]
}

// SetState writes name=value. If the value actually changed it publishes
// a state.change event carrying (name, old, new) and cancels any waiters
// registered under "name.value" (and, when value=="complete", also those
// registered under bare "name").
func (c *Context) SetState(name, value string) {
	c.mu.Lock()
	old := c.states[name]
	if old == value {
		c.mu.Unlock()
		return
	}
	c.states[name] = value

	keys := []string{name + "." + value}
	if value == "complete" {
		keys = append(keys, name)
	}
	var toCancel []Waiter
	for _, k := range keys {
		toCancel = append(toCancel, c.waiters[k]...)
		delete(c.waiters, k)
	}
	c.mu.Unlock()

	c.Bus.Dispatch(bus.KindStateChange, bus.StateChangePayload{Name: name, OldValue: old, NewValue: value})

	for _, w := range toCancel {
		w.Cancel()
	}
}

// RegisterWaiter registers cancel to be invoked exactly once, the next
// time a state write produces wait-key key.
func (c *Context) RegisterWaiter(key, rule string, cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters[key] = append(c.waiters[key], Waiter{Rule: rule, Cancel: cancel})
}

// Timeline returns a snapshot copy of every event observed so far.
func (c *Context) Timeline() []bus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bus.Event, len(c.timeline))
	copy(out, c.timeline)
	return out
}

// States returns a snapshot copy of the state map.
func (c *Context) States() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.states))
	for k, v := range c.states {
		out[k] = v
	}
	return out
}

// Apps always delegates to the live cluster model; per the resolved open
// question in spec.md §9, deployed applications are never cached on
// Context.
func (c *Context) Apps() []string {
	if c.Cluster == nil {
		return nil
	}
	return c.Cluster.Applications()
}

// CacheTask stores a resolved task handle under its short name.
func (c *Context) CacheTask(shortName string, handle interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taskCache[shortName] = handle
}

// CachedTask returns a previously cached task handle, if any.
func (c *Context) CachedTask(shortName string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.taskCache[shortName]
	return v, ok
}

// Reset clears the state map and waiter registry between tests, per
// spec.md §4.5. The timeline and task cache are left intact.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[string]string)
	c.waiters = make(map[string][]Waiter)
}
