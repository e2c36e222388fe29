// Package crashdump invokes an external collector after a gating test
// failure, per spec §4.5.
package crashdump

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// Collector gathers diagnostic state after a gating failure.
type Collector interface {
	Collect(ctx context.Context, test string) error
}

// ExecCollector shells out to a configured crashdump binary, passing
// the failing test's name as its sole argument and writing its output
// under OutputDir/<test>-crashdump.log.
type ExecCollector struct {
	Command   string
	OutputDir string
}

// NewExecCollector builds an ExecCollector. A zero-value Command makes
// Collect a no-op, for runs with no crashdump tooling configured.
func NewExecCollector(command, outputDir string) *ExecCollector {
	return &ExecCollector{Command: command, OutputDir: outputDir}
}

func (c *ExecCollector) Collect(ctx context.Context, test string) error {
	if c.Command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, c.Command, test)
	out, err := cmd.CombinedOutput()

	if c.OutputDir != "" {
		logPath := filepath.Join(c.OutputDir, test+"-crashdump.log")
		_ = os.WriteFile(logPath, out, 0644)
	}
	return err
}
