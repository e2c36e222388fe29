// Command matrix runs a chaos test suite against a cluster model,
// following the lifecycle described in spec §4 and the CLI contract of
// §6: exit 0 on success, 1 on infra failure, 101 on a gating test
// failure, 200 if the cluster model itself could not be created.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/chaos"
	"github.com/jujuqa/matrix/internal/cluster"
	"github.com/jujuqa/matrix/internal/config"
	"github.com/jujuqa/matrix/internal/crashdump"
	"github.com/jujuqa/matrix/internal/driver"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/obslog"
	"github.com/jujuqa/matrix/internal/rules"
	"github.com/jujuqa/matrix/internal/skin"
	"github.com/jujuqa/matrix/internal/task"
	"github.com/jujuqa/matrix/internal/xunit"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Defaults()
	cmd := buildRootCommand(&cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "matrix:", err)
		return engineerr.ExitInfraFailure
	}
	return exitCode
}

// exitCode carries the RunE result out of cobra, which only reports
// success/failure of command parsing, not the driver's own exit
// classification.
var exitCode int

func buildRootCommand(cfg *config.Config) *cobra.Command {
	var additionalSuites []string
	var configFile string

	cmd := &cobra.Command{
		Use:   "matrix [suite.yaml]",
		Short: "Run a chaos test suite against a deployed application model",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.AdditionalSuites = append(append([]string{}, args...), additionalSuites...)
			// Flags given on the command line take precedence over the
			// config file, so remember them and apply them again after it.
			given := map[string]string{}
			cmd.Flags().Visit(func(f *pflag.Flag) {
				if f.Name != "additional_suites" {
					given[f.Name] = f.Value.String()
				}
			})
			if err := config.LoadFile(cfg, configFile); err != nil {
				return fmt.Errorf("loading config file: %w", err)
			}
			for name, value := range given {
				if err := cmd.Flags().Set(name, value); err != nil {
					return fmt.Errorf("reapplying flag --%s: %w", name, err)
				}
			}
			if err := config.Load(cfg); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			exitCode = runMatrix(cfg)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Path, "path", "p", cfg.Path, "directory to search for suite files and external tasks")
	flags.StringVarP(&cfg.Controller, "controller", "c", cfg.Controller, "cloud controller to bootstrap or connect to")
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, "model name to use")
	flags.StringVarP(&cfg.Cloud, "cloud", "C", cfg.Cloud, "cloud to deploy to")
	flags.StringVarP(&cfg.ModelPrefix, "model-prefix", "M", cfg.ModelPrefix, "prefix for generated model names")
	flags.BoolVarP(&cfg.KeepModels, "keep-models", "k", cfg.KeepModels, "do not destroy models between tests")
	flags.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVarP(&cfg.LogName, "log-name", "L", cfg.LogName, "log file name; not used: the event log is always written as matrix.log")
	flags.StringVarP(&cfg.LogFilter, "log-filter", "f", cfg.LogFilter, "glob filtering which event kinds reach matrix.log")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "d", cfg.OutputDir, "directory for logs, xunit reports, and chaos plans")
	flags.StringVarP(&cfg.Skin, "skin", "s", cfg.Skin, "progress rendering: raw or tui")
	flags.StringVarP(&cfg.Xunit, "xunit", "x", cfg.Xunit, "write a JUnit-style XML report to this path")
	flags.BoolVarP(&cfg.FailFast, "fail-fast", "F", cfg.FailFast, "stop the suite at the first failing test")
	flags.IntVarP(&cfg.IntervalSeconds, "interval", "i", cfg.IntervalSeconds, "rule-entry poll interval in seconds")
	flags.BoolVarP(&cfg.Debug, "debug", "D", cfg.Debug, "enable debug logging")
	flags.IntVarP(&cfg.BootstrapTimeout, "bootstrap-timeout", "B", cfg.BootstrapTimeout, "seconds to wait for model bootstrap")
	flags.StringVarP(&cfg.TestPattern, "test_pattern", "t", cfg.TestPattern, "glob restricting which tests run")
	flags.StringVarP(&cfg.ChaosPlan, "chaos_plan", "g", cfg.ChaosPlan, "path to a pre-generated chaos plan, used verbatim")
	flags.IntVarP(&cfg.ChaosNum, "chaos_num", "n", cfg.ChaosNum, "number of actions to generate in a new chaos plan")
	flags.StringVarP(&cfg.ChaosOutput, "chaos_output", "o", cfg.ChaosOutput, "chaos plan output filename template (%s = model name)")
	flags.BoolVarP(&cfg.HA, "ha", "H", cfg.HA, "deploy the controller in HA mode")
	flags.StringSliceVar(&additionalSuites, "additional_suites", nil, "extra suite files merged on top of the positional suite")
	flags.StringVar(&configFile, "config", "", "optional matrix.yaml config file, overridden by flags and MATRIX_ env vars")

	return cmd
}

// runMatrix wires every component together and runs the merged suite,
// returning the process exit code per the §6 contract.
func runMatrix(cfg *config.Config) int {
	logFile, err := os.OpenFile(filepath.Join(cfg.OutputDir, "matrix.stderr.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile = os.Stderr
	} else {
		defer logFile.Close()
	}
	logLevel := cfg.LogLevel
	if cfg.Debug {
		logLevel = "debug"
	}
	logger := obslog.NewSlogLogger(logFile, logLevel)

	b := bus.New(bus.Config{Origin: "matrix"}, logger)

	matrixLog := obslog.NewMatrixLogTarget(obslog.MatrixLogConfig{
		Dir: cfg.OutputDir, MaxSizeMB: 50, MaxBackups: 5, Compress: true,
	})
	defer matrixLog.Close()
	b.Subscribe(matrixLog.Handler(), bus.Glob(filterOrAll(cfg.LogFilter)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go b.Run(ctx)

	model, err := buildModel(ctx, cfg)
	if err != nil {
		logger.Error("model creation failed", "err", err)
		return engineerr.ExitModelCreate
	}

	var renderSkin skin.Skin = skin.NewRaw(os.Stdout)
	if cfg.Skin == "tui" {
		tui := skin.NewTUI()
		if err := tui.Unavailable(); err != nil {
			logger.Error("tui skin unavailable", "err", err)
			return engineerr.ExitInfraFailure
		}
		renderSkin = tui
	}
	unattach := renderSkin.Attach(b)
	defer unattach()

	suite, err := loadSuite(cfg)
	if err != nil {
		logger.Error("suite load failed", "err", err)
		return engineerr.ExitInfraFailure
	}
	suite = filterTests(suite, cfg.TestPattern)

	resolver := task.NewResolver(cfg.Path)
	resolver.Logger = logger
	registerChaosTask(resolver, model, b, cfg)

	var collector crashdump.Collector
	if cfg.CrashdumpCmd != "" {
		collector = crashdump.NewExecCollector(cfg.CrashdumpCmd, cfg.OutputDir)
	}

	d := driver.New(b, model, resolver, collector, logger, driver.Config{
		Interval:       cfg.Interval(),
		KeepModels:     cfg.KeepModels,
		FailFast:       cfg.FailFast,
		DestroyRetries: 3,
		DestroyBackoff: time.Second,
		ConfigPath:     cfg.Path,
	})

	results := d.RunSuite(ctx, suite)

	writeXunitReport(cfg, results)

	return worstExitCode(results)
}

func filterOrAll(pattern string) string {
	if pattern == "" {
		return "*"
	}
	return pattern
}

func buildModel(ctx context.Context, cfg *config.Config) (cluster.Model, error) {
	// A real controller client is outside this run's scope (spec §6.1's
	// open boundary); FakeModel stands in as the pluggable Model this CLI
	// wires against, named after the configured model so logs and xunit
	// output read naturally.
	model := cluster.NewFakeModel(cfg.Model, nil, nil)
	if err := model.Deploy(ctx); err != nil {
		return nil, err
	}
	return model, nil
}

func loadSuite(cfg *config.Config) (rules.Suite, error) {
	var suites []rules.Suite
	for _, path := range append([]string{cfg.Path}, cfg.AdditionalSuites...) {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return rules.Suite{}, err
		}
		s, err := rules.ParseSuite(data)
		if err != nil {
			return rules.Suite{}, err
		}
		suites = append(suites, s)
	}
	return rules.MergeSuites(suites...), nil
}

func filterTests(suite rules.Suite, pattern string) rules.Suite {
	if pattern == "" {
		return suite
	}
	var filtered rules.Suite
	filtered.Fmt = suite.Fmt
	for _, t := range suite.Tests {
		if matched, _ := filepath.Match(pattern, t.Name); matched {
			filtered.Tests = append(filtered.Tests, t)
		}
	}
	return filtered
}

// registerChaosTask wires the chaos planner as the in-process task
// registered under the short name "run", so a suite rule's
// `do: tests.chaos.run` resolves to it (with optional args.plan
// overriding cfg.ChaosPlan verbatim).
func registerChaosTask(resolver *task.Resolver, model cluster.Model, b *bus.Bus, cfg *config.Config) {
	reg := chaos.NewRegistry()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	chaos.RegisterBaseSelectors(reg, rng)
	exec := chaos.NewExecutor(reg, model, b)

	resolver.Register("run", func(ctx context.Context, v task.View, args task.Args) error {
		plan, err := resolveChaosPlan(reg, model, cfg, args, rng)
		if err != nil {
			return err
		}
		gating, _ := args["gating"].(bool)
		return exec.Run(ctx, plan, gating)
	})
}

func resolveChaosPlan(reg *chaos.Registry, model cluster.Model, cfg *config.Config, args task.Args, rng *rand.Rand) (chaos.Plan, error) {
	if planPath, ok := args["plan"].(string); ok && planPath != "" {
		return chaos.Load(planPath)
	}
	if cfg.ChaosPlan != "" {
		return chaos.Load(cfg.ChaosPlan)
	}

	plan, err := chaos.Generate(reg, model, cfg.ChaosNum, rng)
	if err != nil {
		return chaos.Plan{}, err
	}
	if cfg.OutputDir != "" && cfg.ChaosOutput != "" {
		out := chaos.OutputPath(cfg.OutputDir, cfg.ChaosOutput, model.Name())
		_ = chaos.Persist(plan, out)
	}
	return plan, nil
}

func writeXunitReport(cfg *config.Config, results []driver.Result) {
	if cfg.Xunit == "" {
		return
	}
	w := xunit.NewWriter("matrix")
	for _, r := range results {
		w.Record(cfg.Model, r, 0)
	}
	if err := w.WriteFile(cfg.Xunit); err != nil {
		fmt.Fprintln(os.Stderr, "matrix: writing xunit report:", err)
	}
}

func worstExitCode(results []driver.Result) int {
	worst := engineerr.ExitSuccess
	for _, r := range results {
		if r.ExitCode > worst {
			worst = r.ExitCode
		}
	}
	return worst
}
