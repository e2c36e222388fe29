package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/obslog"
	"github.com/jujuqa/matrix/internal/state"
)

// processTask invokes a task as a subprocess, matching the source
// tool's external-task convention: the run's view and the rule's args
// are serialized as one JSON document on the child's stdin. Per spec
// §4.2/§6, the child receives PATH (prefixed with the configured search
// path) and no other environment variable.
type processTask struct {
	name       string
	path       string
	searchPath string
	logger     obslog.Logger
}

func (t *processTask) Name() string { return t.name }

type processPayload struct {
	Context View `json:"context"`
	Args    Args `json:"args"`
}

func (t *processTask) Invoke(ctx context.Context, sc *state.Context, args Args, event *bus.Event) error {
	payload, err := json.Marshal(processPayload{Context: buildView(sc, event), Args: args})
	if err != nil {
		return &engineerr.ResolutionError{Command: t.name, Err: err}
	}

	cmd := exec.CommandContext(ctx, t.path)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = []string{"PATH=" + t.searchPath + string(os.PathListSeparator) + os.Getenv("PATH")}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()

	if t.logger != nil {
		if stdout.Len() > 0 {
			t.logger.Debug("task stdout", "task", t.name, "output", strings.TrimSpace(stdout.String()))
		}
		if stderr.Len() > 0 {
			t.logger.Debug("task stderr", "task", t.name, "output", strings.TrimSpace(stderr.String()))
		}
	}

	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &engineerr.TestFailure{Task: t.name, Message: strings.TrimSpace(stderr.String())}
	}
	return &engineerr.ResolutionError{Command: t.name, Err: err}
}
