package driver

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/require"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/rules"
	"github.com/jujuqa/matrix/internal/state"
	"github.com/jujuqa/matrix/internal/task"
)

// driverBDDContext carries one scenario's fixtures across its steps: a
// running bus, a resolver with whatever handlers the scenario registers,
// and whatever asynchronous run it kicked off.
type driverBDDContext struct {
	t *testing.T

	ctx    context.Context
	cancel context.CancelFunc
	b      *bus.Bus
	sc     *state.Context
	res    *task.Resolver
	drv    *Driver

	test        rules.Test
	resultCh    chan Result
	invocations map[string]*int32
}

func newDriverBDDContext(t *testing.T) *driverBDDContext {
	b := bus.New(bus.Config{Origin: "bdd"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	resolver := task.NewResolver("")
	sc := state.New(b, nil, 0)

	d := New(b, nil, resolver, nil, nil, Config{Interval: 10 * time.Millisecond, DestroyRetries: 0})

	return &driverBDDContext{
		t:           t,
		ctx:         ctx,
		cancel:      cancel,
		b:           b,
		sc:          sc,
		res:         resolver,
		drv:         d,
		resultCh:    make(chan Result, 1),
		invocations: make(map[string]*int32),
	}
}

func (d *driverBDDContext) counter(name string) *int32 {
	if c, ok := d.invocations[name]; ok {
		return c
	}
	c := new(int32)
	d.invocations[name] = c
	return c
}

// --- sequential gating steps ---

func (d *driverBDDContext) buildSequentialTest(names, failing string) error {
	var ruleList []rules.Rule
	for _, raw := range strings.Split(names, ",") {
		name := strings.TrimSpace(raw)
		counter := d.counter(name)
		if name == failing {
			d.res.Register(name, func(ctx context.Context, v task.View, a task.Args) error {
				atomic.AddInt32(counter, 1)
				return &engineerr.TestFailure{Task: name, Message: "boom"}
			})
		} else {
			d.res.Register(name, func(ctx context.Context, v task.View, a task.Args) error {
				atomic.AddInt32(counter, 1)
				return nil
			})
		}
		ruleList = append(ruleList, rules.Rule{Task: rules.Task{Command: "tests." + name, Gating: true}})
	}
	d.test = rules.Test{Name: "seq", Rules: ruleList}
	return nil
}

func (d *driverBDDContext) theTestRuns() error {
	result := d.drv.RunTest(d.ctx, d.sc, d.test)
	d.resultCh <- result
	return nil
}

func (d *driverBDDContext) theTestResultShouldBeASuccess() error {
	result := <-d.resultCh
	if result.ExitCode != engineerr.ExitSuccess {
		d.t.Fatalf("expected success, got exit code %d (err: %v)", result.ExitCode, result.Err)
	}
	return nil
}

func (d *driverBDDContext) theTestResultShouldBeAGatingFailure() error {
	result := <-d.resultCh
	if result.ExitCode != engineerr.ExitGating {
		d.t.Fatalf("expected gating failure, got exit code %d (err: %v)", result.ExitCode, result.Err)
	}
	return nil
}

// --- until cancellation steps ---

func (d *driverBDDContext) aPeriodicRuleGatedUntilStateCompletes(ruleName, stateName string) error {
	counter := d.counter(ruleName)
	d.res.Register(ruleName, func(ctx context.Context, v task.View, a task.Args) error {
		atomic.AddInt32(counter, 1)
		return nil
	})

	rule := rules.Rule{
		Task: rules.Task{Command: "tests." + ruleName},
		Conditions: []rules.Condition{
			{Mode: rules.Periodic, Statement: "0.01"},
			{Mode: rules.Until, Statement: stateName},
		},
	}
	d.test = rules.Test{Name: "until", Rules: []rules.Rule{rule}}

	go func() {
		d.resultCh <- d.drv.RunTest(d.ctx, d.sc, d.test)
	}()
	return nil
}

func (d *driverBDDContext) stateIsSetTo(stateName, value string) error {
	time.Sleep(20 * time.Millisecond)
	d.sc.SetState(stateName, value)
	return nil
}

func (d *driverBDDContext) theRuleShouldStopRunningWithoutError(ruleName string) error {
	select {
	case result := <-d.resultCh:
		require.NoError(d.t, result.Err)
	case <-time.After(2 * time.Second):
		d.t.Fatal("rule did not terminate after until condition fired")
	}
	if got := d.sc.GetState(ruleName); got != "complete" {
		d.t.Fatalf("expected rule %q to reach complete, got %q", ruleName, got)
	}
	return nil
}

// --- on-event rule steps ---

func (d *driverBDDContext) aRuleThatTriggersOnEvent(ruleName, eventKind string) error {
	counter := d.counter(ruleName)
	d.res.Register(ruleName, func(ctx context.Context, v task.View, a task.Args) error {
		atomic.AddInt32(counter, 1)
		return nil
	})

	rule := rules.Rule{
		Task: rules.Task{Command: "tests." + ruleName},
		Conditions: []rules.Condition{
			{Mode: rules.On, Statement: eventKind},
			{Mode: rules.Until, Statement: "chaos.complete"},
		},
	}
	d.test = rules.Test{Name: "onevent", Rules: []rules.Rule{rule}}

	go func() {
		d.resultCh <- d.drv.RunTest(d.ctx, d.sc, d.test)
	}()
	return nil
}

func (d *driverBDDContext) nEventsAreDispatched(n int, eventKind string) error {
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < n; i++ {
		d.b.Dispatch(eventKind, nil)
	}
	return nil
}

func (d *driverBDDContext) theTaskShouldHaveBeenInvokedNTimes(ruleName string, n int) error {
	counter := d.counter(ruleName)
	require.Eventually(d.t, func() bool {
		return atomic.LoadInt32(counter) == int32(n)
	}, 2*time.Second, 5*time.Millisecond, "expected %d invocations of %q", n, ruleName)
	d.cancel()
	return nil
}

func TestDriverBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(s *godog.ScenarioContext) {
			var d *driverBDDContext
			s.Before(func(sctx context.Context, sc *godog.Scenario) (context.Context, error) {
				d = newDriverBDDContext(t)
				return sctx, nil
			})
			s.After(func(sctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
				d.cancel()
				return sctx, err
			})

			s.Given(`^a test with rules "([^"]*)" that all succeed$`, func(names string) error {
				return d.buildSequentialTest(names, "")
			})
			s.Given(`^a test with rules "([^"]*)" where "([^"]*)" fails$`, func(names, failing string) error {
				return d.buildSequentialTest(names, failing)
			})
			s.When(`^the test runs$`, func() error { return d.theTestRuns() })
			s.Then(`^the test result should be a success$`, func() error { return d.theTestResultShouldBeASuccess() })
			s.Then(`^the test result should be a gating failure$`, func() error { return d.theTestResultShouldBeAGatingFailure() })

			s.Given(`^a periodic rule "([^"]*)" gated until state "([^"]*)" completes$`, func(rule, stateName string) error {
				return d.aPeriodicRuleGatedUntilStateCompletes(rule, stateName)
			})
			s.When(`^state "([^"]*)" is set to "([^"]*)"$`, func(stateName, value string) error {
				return d.stateIsSetTo(stateName, value)
			})
			s.Then(`^the rule "([^"]*)" should stop running without error$`, func(rule string) error {
				return d.theRuleShouldStopRunningWithoutError(rule)
			})

			s.Given(`^a rule "([^"]*)" that triggers on event "([^"]*)"$`, func(rule, event string) error {
				return d.aRuleThatTriggersOnEvent(rule, event)
			})
			s.When(`^(\d+) "([^"]*)" events are dispatched$`, func(n int, event string) error {
				return d.nEventsAreDispatched(n, event)
			})
			s.Then(`^the task "([^"]*)" should have been invoked (\d+) times$`, func(rule string, n int) error {
				return d.theTaskShouldHaveBeenInvokedNTimes(rule, n)
			})
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
