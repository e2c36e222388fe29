// Package task resolves a rule's `do` command to a runnable task — either
// an in-process handler registered by name, or an external subprocess
// found on the configured search path — and invokes it with a
// JSON-serializable view of the run's state.
package task

import (
	"context"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/rules"
	"github.com/jujuqa/matrix/internal/state"
)

// Args is a `do` clause's task arguments, as parsed from suite YAML.
type Args map[string]interface{}

// View is the JSON-serializable projection of state.Context handed to a
// task, matching spec §4.2's public view: the merged suite, the current
// state map, the full event timeline so far, the configured search path,
// the live application list, and — for an on-clause invocation — the
// triggering event.
type View struct {
	Suite      rules.Suite       `json:"suite"`
	States     map[string]string `json:"states"`
	Timeline   []bus.Event       `json:"timeline"`
	ConfigPath string            `json:"config_path"`
	Apps       []string          `json:"apps"`
	Event      *bus.Event        `json:"event,omitempty"`
}

func buildView(sc *state.Context, event *bus.Event) View {
	suite, _ := sc.Suite.(rules.Suite)
	return View{
		Suite:      suite,
		States:     sc.States(),
		Timeline:   sc.Timeline(),
		ConfigPath: sc.ConfigPath,
		Apps:       sc.Apps(),
		Event:      event,
	}
}

// Handler is an in-process task implementation.
type Handler func(ctx context.Context, view View, args Args) error

// Task is a resolved, invokable unit of work. event carries the bus event
// that triggered this invocation for an on-clause rule, and is nil for a
// periodic or once-off invocation.
type Task interface {
	// Name is the short name the task was registered or found under.
	Name() string
	// Invoke runs the task to completion or until ctx is cancelled.
	Invoke(ctx context.Context, sc *state.Context, args Args, event *bus.Event) error
}

type inProcessTask struct {
	name    string
	handler Handler
}

func (t *inProcessTask) Name() string { return t.name }

func (t *inProcessTask) Invoke(ctx context.Context, sc *state.Context, args Args, event *bus.Event) error {
	return t.handler(ctx, buildView(sc, event), args)
}
