// Package runner implements the per-rule state machine described in
// spec §4.4: one goroutine per rule cycling through
// pending → running → paused → complete, driven by its conditions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/obslog"
	"github.com/jujuqa/matrix/internal/rules"
	"github.com/jujuqa/matrix/internal/state"
	"github.com/jujuqa/matrix/internal/task"
)

// Runner drives one rule's lifecycle from enter through its eventual
// completion. A Runner is single-use: call Run once.
type Runner struct {
	Rule     rules.Rule
	Resolver *task.Resolver
	Interval time.Duration
	Logger   obslog.Logger
	// ErrSink, if set, receives task errors the runner itself does not
	// propagate (non-TestFailure exceptions, and errors from an `on`
	// subscription's async invocations), matching the source's
	// task-completion-channel observability for non-gating failures.
	ErrSink func(error)

	mu         sync.Mutex
	cancelled  bool
	cancelOnce sync.Once
	cancelCh   chan struct{}

	onUnsubscribe func()
	cachedTask    task.Task
}

// New builds a Runner for rule, ready to run against sc once Run is
// called. Interval defaults to sc.Interval seconds when zero.
func New(rule rules.Rule, resolver *task.Resolver, interval time.Duration, logger obslog.Logger) *Runner {
	return &Runner{
		Rule:     rule,
		Resolver: resolver,
		Interval: interval,
		Logger:   logger,
		cancelCh: make(chan struct{}),
	}
}

// Cancel is the waiter callback registered for an `until` condition: it
// marks the runner cancelled and wakes any sleep/poll it is currently
// blocked in. Safe to call more than once or concurrently with Run.
func (r *Runner) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

func (r *Runner) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Run executes the rule's full lifecycle against sc and returns the
// rule's boolean result together with any error the test driver must
// treat as fail-fast: a *engineerr.TestFailure from the rule's task, a
// context cancellation observed while polling/sleeping, or an
// *engineerr.InfraFailure for a periodic statement that does not parse.
func (r *Runner) Run(ctx context.Context, sc *state.Context) (bool, error) {
	name := r.Rule.Name()
	if r.Interval == 0 {
		r.Interval = time.Duration(sc.Interval) * time.Second
	}

	cancelledAtEnter, err := r.enterPhase(ctx, sc)
	if err != nil {
		return false, err
	}

	_, hasUntil := r.Rule.HasUntil()
	periodicCond, hasPeriodic := r.Rule.HasPeriodic()

	first := true
	for {
		sc.SetState(name, "running")

		taskErr := r.runPhase(ctx, sc, first && cancelledAtEnter)
		first = false

		result, propagate := r.classify(taskErr)
		cancelledNow := r.isCancelled()

		if (!hasUntil && !hasPeriodic) || cancelledNow || propagate != nil {
			sc.SetState(name, "complete")
			r.unsubscribeOn()
			sc.Bus.Dispatch(bus.KindRuleDone, bus.RuleDonePayload{
				Rule: name, Result: result, Cancelled: cancelledNow, Err: propagate,
			})
			return result, propagate
		}

		var wait time.Duration
		if hasPeriodic {
			sc.SetState(name, "paused")
			d, perr := rules.PeriodDuration(periodicCond.Statement)
			if perr != nil {
				return false, &engineerr.InfraFailure{Phase: "rule " + name, Err: perr}
			}
			wait = d
		} else {
			wait = r.Interval
		}

		select {
		case <-time.After(wait):
		case <-r.cancelCh:
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}

// enterPhase polls match(sc) every Interval until it matches or the
// runner is cancelled; cancellation during this phase still falls
// through to the action exactly once (spec §4.4 step 1).
func (r *Runner) enterPhase(ctx context.Context, sc *state.Context) (cancelled bool, err error) {
	for {
		if r.Rule.EnterMatches(sc) {
			return false, nil
		}
		select {
		case <-time.After(r.Interval):
		case <-r.cancelCh:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// runPhase performs the rule's run-phase action: for an `on` rule, it
// creates the event subscription (once) and, outside of the
// cancelled-fallthrough case, does not block; otherwise it resolves and
// invokes the rule's task once, synchronously.
func (r *Runner) runPhase(ctx context.Context, sc *state.Context, runOnceDespiteOnClause bool) error {
	cond, hasOn := r.Rule.HasOn()
	if hasOn && !runOnceDespiteOnClause {
		r.subscribeOnOnce(sc, cond)
		return nil
	}
	return r.invokeOnce(ctx, sc)
}

func (r *Runner) invokeOnce(ctx context.Context, sc *state.Context) error {
	tk, err := r.resolveCached(sc)
	if err != nil {
		return err
	}
	return tk.Invoke(ctx, sc, task.Args(r.Rule.Task.Args), nil)
}

func (r *Runner) resolveCached(sc *state.Context) (task.Task, error) {
	name := r.Rule.Name()
	if cached, ok := sc.CachedTask(name); ok {
		return cached.(task.Task), nil
	}
	tk, err := r.Resolver.Resolve(r.Rule.Task)
	if err != nil {
		return nil, err
	}
	sc.CacheTask(name, tk)
	r.cachedTask = tk
	return tk, nil
}

func (r *Runner) subscribeOnOnce(sc *state.Context, cond rules.Condition) {
	if r.onUnsubscribe != nil {
		return
	}
	tk, err := r.resolveCached(sc)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Error("on-clause task resolution failed", "rule", r.Rule.Name(), "err", err)
		}
		return
	}

	name := r.Rule.Name()
	pred := func(ev bus.Event) bool {
		return bus.Glob(cond.Statement)(ev) && sc.GetState(name) == "running"
	}
	r.onUnsubscribe = task.RunOnEvent(sc.Bus, pred, tk, sc, task.Args(r.Rule.Task.Args), func(err error) {
		if r.Logger != nil {
			r.Logger.Error("on-clause task invocation failed", "rule", name, "err", err)
		}
		if r.ErrSink != nil {
			r.ErrSink(fmt.Errorf("rule %s: %w", name, err))
		}
	})
}

func (r *Runner) unsubscribeOn() {
	if r.onUnsubscribe != nil {
		r.onUnsubscribe()
		r.onUnsubscribe = nil
	}
}

// classify applies the failure semantics of §4.4: a *TestFailure
// propagates to the caller; any other error is logged and reported to
// ErrSink, and the rule's result is treated as false without re-raising.
func (r *Runner) classify(taskErr error) (result bool, propagate error) {
	if taskErr == nil {
		return true, nil
	}
	var tf *engineerr.TestFailure
	if errors.As(taskErr, &tf) {
		return false, taskErr
	}
	if r.Logger != nil {
		r.Logger.Error("task failed", "rule", r.Rule.Name(), "err", taskErr)
	}
	if r.ErrSink != nil {
		r.ErrSink(taskErr)
	}
	return false, nil
}
