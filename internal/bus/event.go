// Package bus implements the engine's single-writer publish/subscribe
// event queue. A Bus owns one FIFO and fans each queued Event out to every
// subscriber whose predicates all match, in enqueue order.
package bus

import "time"

// Event is an immutable record pushed onto the bus.
//
// Kind is a dotted string ("rule.done", "state.change", ...). Payload is
// kind-dependent and is never mutated after Dispatch returns. Created
// records the call site that produced the event, for debugging.
type Event struct {
	Time    time.Time
	Origin  string
	Kind    string
	Payload interface{}
	Created string
}

// Well-known event kinds published by the core, consumed by UI / XUnit /
// timeline subscribers.
const (
	KindStateChange   = "state.change"
	KindRuleCreate    = "rule.create"
	KindRuleDone      = "rule.done"
	KindTestSchedule  = "test.schedule"
	KindTestStart     = "test.start"
	KindTestComplete  = "test.complete"
	KindTestFinish    = "test.finish"
	KindModelNew      = "model.new"
	KindModelChange   = "model.change"
	KindChaosActivate = "chaos.activate"
	KindLoggingMsg    = "logging.message"
	KindUIChange      = "ui.change"
	KindShutdown      = "shutdown"
)

// StateChangePayload is carried by every state.change event.
type StateChangePayload struct {
	Name     string
	OldValue string
	NewValue string
}

// RuleDonePayload is carried by every rule.done event.
type RuleDonePayload struct {
	Rule      string
	Result    bool
	Cancelled bool
	Err       error
}

// TestCompletePayload is carried by test.complete.
type TestCompletePayload struct {
	Test   string
	Result bool
}
