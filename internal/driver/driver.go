// Package driver implements the per-test lifecycle described in spec
// §4.5: publish test.start, run one goroutine per rule, wait with
// fail-fast-on-exception semantics, classify the result, and manage the
// cluster model and crashdump collector between tests.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/cluster"
	"github.com/jujuqa/matrix/internal/crashdump"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/obslog"
	"github.com/jujuqa/matrix/internal/rules"
	"github.com/jujuqa/matrix/internal/runner"
	"github.com/jujuqa/matrix/internal/state"
	"github.com/jujuqa/matrix/internal/task"
)

// Config carries the driver's per-run tunables, a narrow slice of the
// CLI-level config described in §6.
type Config struct {
	Interval        time.Duration
	KeepModels      bool
	FailFast        bool
	DestroyRetries  int
	DestroyBackoff  time.Duration
	ShouldGate      func(sc *state.Context, rule rules.Rule) bool

	// ConfigPath is config.path (the task search path), surfaced on
	// every run's Context so the task resolver's subprocess view can
	// include it (spec §4.2).
	ConfigPath string
}

// DefaultShouldGate gates on every rule whose task was declared gating,
// matching the suite-level default (spec §3: gating defaults to true).
func DefaultShouldGate(sc *state.Context, rule rules.Rule) bool { return rule.Task.Gating }

// Driver runs a merged suite's tests in order against one cluster model.
type Driver struct {
	Bus        *bus.Bus
	Model      cluster.Model
	Resolver   *task.Resolver
	Collector  crashdump.Collector
	Logger     obslog.Logger
	Config     Config
}

// Result is one test's outcome.
type Result struct {
	Test     string
	Success  bool
	ExitCode int
	Err      error
}

// New builds a Driver with DefaultShouldGate if Config.ShouldGate is nil.
func New(b *bus.Bus, model cluster.Model, resolver *task.Resolver, collector crashdump.Collector, logger obslog.Logger, cfg Config) *Driver {
	if cfg.ShouldGate == nil {
		cfg.ShouldGate = DefaultShouldGate
	}
	return &Driver{Bus: b, Model: model, Resolver: resolver, Collector: collector, Logger: logger, Config: cfg}
}

// RunSuite runs every test in suite in order, stopping at the first
// test whose exit code is non-zero when cfg.FailFast is set.
func (d *Driver) RunSuite(ctx context.Context, suite rules.Suite) []Result {
	var results []Result
	for _, t := range suite.Tests {
		sc := state.New(d.Bus, d.Model, int(d.Config.Interval.Seconds()))
		sc.Suite = suite
		sc.ConfigPath = d.Config.ConfigPath
		res := d.RunTest(ctx, sc, t)
		results = append(results, res)

		d.recycleModel(ctx, res.ExitCode != engineerr.ExitSuccess)

		if d.Config.FailFast && res.ExitCode != engineerr.ExitSuccess {
			break
		}
	}
	return results
}

// RunTest runs one test: publishes test.start, spawns a runner per
// rule, registers until-waiters, waits fail-fast-on-exception, and
// classifies the outcome.
func (d *Driver) RunTest(ctx context.Context, sc *state.Context, test rules.Test) Result {
	d.Bus.Dispatch(bus.KindTestStart, test.Name)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		rule   rules.Rule
		result bool
		err    error
	}
	outcomes := make(chan outcome, len(test.Rules))

	runners := make([]*runner.Runner, len(test.Rules))
	for i, rule := range test.Rules {
		r := runner.New(rule, d.Resolver, d.Config.Interval, d.Logger)
		runners[i] = r

		if cond, ok := rule.HasUntil(); ok {
			sc.RegisterWaiter(rules.WaitKey(cond.Statement), rule.Name(), r.Cancel)
		}

		go func(r *runner.Runner, rule rules.Rule) {
			result, err := r.Run(runCtx, sc)
			outcomes <- outcome{rule: rule, result: result, err: err}
		}(r, rule)
	}

	allSuccess := true
	var gating bool
	var failErr error
	pending := len(test.Rules)

	for pending > 0 {
		o := <-outcomes
		pending--
		allSuccess = allSuccess && o.result

		if o.err != nil {
			failErr = o.err
			var tf *engineerr.TestFailure
			if errors.As(o.err, &tf) && d.Config.ShouldGate(sc, o.rule) {
				gating = true
			}
			if d.Logger != nil && pending > 0 {
				d.Logger.Warn("stopping early on rule failure, pending runners logged not killed", "test", test.Name, "pending", pending)
			}
			cancel()
			break
		}
	}

	d.Bus.Dispatch(bus.KindTestComplete, bus.TestCompletePayload{Test: test.Name, Result: allSuccess && failErr == nil})

	exitCode := engineerr.ExitSuccess
	switch {
	case failErr != nil && gating:
		exitCode = engineerr.ExitGating
	case failErr != nil:
		exitCode = engineerr.ExitInfraFailure
	case !allSuccess:
		exitCode = engineerr.ExitInfraFailure
	}

	if exitCode == engineerr.ExitGating && d.Collector != nil {
		if err := d.Collector.Collect(ctx, test.Name); err != nil && d.Logger != nil {
			d.Logger.Error("crashdump collection failed", "test", test.Name, "err", err)
		}
	}

	return Result{Test: test.Name, Success: exitCode == engineerr.ExitSuccess, ExitCode: exitCode, Err: failErr}
}

// recycleModel destroys and recreates the cluster model between tests
// unless cfg.KeepModels is set, retrying destroy with exponential
// backoff. gatingFailure is accepted for callers that want to skip
// recycling on a failure that crashdump still needs to inspect; this
// driver always recycles, matching §4.5's "destroys and recreates...
// between tests" baseline behavior.
func (d *Driver) recycleModel(ctx context.Context, gatingFailure bool) {
	if d.Config.KeepModels || d.Model == nil {
		return
	}

	backoff := d.Config.DestroyBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	retries := d.Config.DestroyRetries
	if retries <= 0 {
		retries = 3
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = d.Model.Destroy(ctx); err == nil {
			break
		}
		if d.Logger != nil {
			d.Logger.Warn("model destroy failed, retrying", "attempt", attempt, "err", err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil && d.Logger != nil {
		d.Logger.Error("model destroy exhausted retries", "err", err)
	}

	if err := d.Model.Deploy(ctx); err != nil && d.Logger != nil {
		d.Logger.Error("model recreate failed", "err", err)
	}
}
