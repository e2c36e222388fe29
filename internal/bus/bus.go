package bus

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes one delivered Event. A Handler that panics is
// recovered and logged and does not abort delivery to other subscribers
// for that event, unless the bus is configured with ExitOnException.
type Handler func(Event)

// Config controls Bus behavior.
type Config struct {
	// Origin stamps every Dispatch-created event that doesn't set its own.
	Origin string
	// ExitOnException, when true, stops the drain loop the first time a
	// handler panics. The default tolerates handler panics by logging
	// them and continuing delivery to the remaining subscribers.
	ExitOnException bool
	// Clock overrides time.Now, primarily for deterministic tests.
	Clock func() time.Time
}

type subscription struct {
	id      string
	handler Handler
	preds   []Predicate
}

// Bus is an in-order, filtered publish/subscribe queue with a single
// drain loop (Run). Dispatch enqueues without blocking; Run is the sole
// consumer and fans each event out to every subscription whose
// predicates all match.
type Bus struct {
	config Config

	queueMu sync.Mutex
	queue   []Event
	wake    chan struct{}

	subsMu sync.RWMutex
	subs   map[string]*subscription

	logger interface {
		Error(msg string, args ...any)
	}
}

// New creates a Bus. logger may be nil, in which case handler panics are
// silently swallowed (still not re-panicked, per the non-aborting
// delivery guarantee).
func New(config Config, logger interface {
	Error(msg string, args ...any)
}) *Bus {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Bus{
		config: config,
		wake:   make(chan struct{}, 1),
		subs:   make(map[string]*subscription),
		logger: logger,
	}
}

// Subscribe registers handler to receive every event matching the AND of
// preds. It returns a unique subscription id usable with Unsubscribe.
func (b *Bus) Subscribe(handler Handler, preds ...Predicate) string {
	id := uuid.New().String()
	b.subsMu.Lock()
	b.subs[id] = &subscription{id: id, handler: handler, preds: preds}
	b.subsMu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (b *Bus) Unsubscribe(id string) {
	b.subsMu.Lock()
	delete(b.subs, id)
	b.subsMu.Unlock()
}

// Dispatch constructs an Event, stamping Time from the bus clock and
// Created from the caller's site, and enqueues it without blocking.
func (b *Bus) Dispatch(kind string, payload interface{}) Event {
	return b.dispatch(b.config.Origin, kind, payload)
}

// DispatchFrom is Dispatch with an explicit origin, overriding the bus's
// configured default.
func (b *Bus) DispatchFrom(origin, kind string, payload interface{}) Event {
	return b.dispatch(origin, kind, payload)
}

func (b *Bus) dispatch(origin, kind string, payload interface{}) Event {
	ev := Event{
		Time:    b.config.Clock(),
		Origin:  origin,
		Kind:    kind,
		Payload: payload,
		Created: callSite(2),
	}
	b.queueMu.Lock()
	b.queue = append(b.queue, ev)
	b.queueMu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return ev
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (b *Bus) pop() (Event, bool) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) == 0 {
		return Event{}, false
	}
	ev := b.queue[0]
	b.queue = b.queue[1:]
	return ev, true
}

// Run is the single drain loop. It removes events in FIFO order and
// dispatches each to every currently-matching subscriber, until ctx is
// cancelled, at which point it keeps draining until the queue is empty
// and then returns.
func (b *Bus) Run(ctx context.Context) {
	for {
		drained := b.drainOnce()
		if !drained {
			select {
			case <-b.wake:
				continue
			case <-ctx.Done():
				b.drainAll()
				return
			}
		}
	}
}

func (b *Bus) drainOnce() bool {
	ev, ok := b.pop()
	if !ok {
		return false
	}
	b.deliver(ev)
	return true
}

func (b *Bus) drainAll() {
	for {
		ev, ok := b.pop()
		if !ok {
			return
		}
		b.deliver(ev)
	}
}

func (b *Bus) deliver(ev Event) {
	b.subsMu.RLock()
	matching := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if allMatch(s.preds, ev) {
			matching = append(matching, s)
		}
	}
	b.subsMu.RUnlock()

	for _, s := range matching {
		b.invoke(s, ev)
	}
}

func (b *Bus) invoke(s *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error("event handler panicked", "kind", ev.Kind, "subscription", s.id, "panic", r)
			}
			if b.config.ExitOnException {
				panic(r)
			}
		}
	}()
	s.handler(ev)
}
