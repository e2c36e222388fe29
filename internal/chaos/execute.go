package chaos

import (
	"context"
	"time"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/cluster"
	"github.com/jujuqa/matrix/internal/engineerr"
)

// ActionTimeout is the wall-clock budget for a single planned action,
// per §4.6 execution step 3.
const ActionTimeout = 30 * time.Second

// InterActionDelay is the pause after each action's chaos.activate
// publication, per §4.6 execution step 4.
const InterActionDelay = 2 * time.Second

// Executor runs a validated plan against a cluster model, publishing
// chaos.activate events and enforcing per-action timeouts.
type Executor struct {
	Registry *Registry
	Model    cluster.Model
	Bus      *bus.Bus
}

// NewExecutor builds an Executor.
func NewExecutor(reg *Registry, model cluster.Model, b *bus.Bus) *Executor {
	return &Executor{Registry: reg, Model: model, Bus: b}
}

// Run executes every action in plan in order. gating controls whether
// an action error raises a *engineerr.TestFailure (§4.6 step 3); after
// all actions it blocks until the cluster reports idle.
func (e *Executor) Run(ctx context.Context, plan Plan, gating bool) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	for _, spec := range plan.Actions {
		if err := e.runOne(ctx, spec); err != nil {
			if gating {
				return &engineerr.TestFailure{Task: "chaos." + spec.Action, Message: err.Error()}
			}
		}
		time.Sleep(InterActionDelay)
	}

	return e.Model.WaitIdle(ctx)
}

func (e *Executor) runOne(ctx context.Context, spec ActionSpec) error {
	action, ok := e.Registry.Action(spec.Action)
	if !ok {
		return &engineerr.ResolutionError{Command: spec.Action, Err: engineerr.ErrUnknownTask}
	}

	var target interface{} = e.Model
	if len(spec.Selectors) > 0 {
		targets := e.resolveChain(spec.Selectors)
		if len(targets) == 0 {
			// A selector chain that yields nothing is not an error: the
			// action is skipped for this slot, per §4.6 execution step 2.
			return nil
		}
		target = targets[0]
	}

	actionCtx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- action.Run(actionCtx, e.Model, target, spec.Kwargs)
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-actionCtx.Done():
		runErr = &engineerr.InfraFailure{Phase: "chaos action " + spec.Action, Err: engineerr.ErrActionTimeout}
	}

	e.Bus.Dispatch(bus.KindChaosActivate, map[string]interface{}{"action": spec.Action, "kwargs": spec.Kwargs})
	return runErr
}

// resolveChain evaluates a selector chain: each step's output becomes
// the next step's input, starting from an empty set. Each selector
// receives its kwargs unchanged: string values such as an application
// name are not resolved to cluster objects first. An unknown selector
// or an empty output ends the chain with an empty result.
func (e *Executor) resolveChain(specs []SelectorSpec) []interface{} {
	var current []interface{}
	for _, s := range specs {
		sel, ok := e.Registry.Selector(s.Selector)
		if !ok {
			return nil
		}
		current = sel.Run(e.Model, current, s.Kwargs)
		if len(current) == 0 {
			return nil
		}
	}
	return current
}
