package task

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/obslog"
	"github.com/jujuqa/matrix/internal/rules"
)

// Resolver maps a rule's task command to a Task: first against
// in-process handlers registered by short name, then against
// executables found on SearchPath. Resolution results are not cached by
// the resolver itself — the rule runner caches the resolved Task on
// state.Context under the task's short name, per spec.md §4.3.
type Resolver struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	SearchPath string

	// Logger, if set, is threaded into every resolved subprocess task so
	// it can debug-log captured stdout/stderr (spec §4.2).
	Logger obslog.Logger
}

// NewResolver creates a Resolver that looks for subprocess tasks on
// searchPath (a colon-separated list of directories, prepended to the
// process's own PATH when a subprocess task runs).
func NewResolver(searchPath string) *Resolver {
	return &Resolver{handlers: make(map[string]Handler), SearchPath: searchPath}
}

// Register adds an in-process handler under name, overriding any
// previous registration of the same name. name is matched against a
// rule's task short name (rules.Task.Name()), not its full command.
func (r *Resolver) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Resolve looks up t's command: an in-process handler under its short
// name wins over a subprocess of the same name. A command matching
// neither is a ResolutionError wrapping ErrUnknownTask.
func (r *Resolver) Resolve(t rules.Task) (Task, error) {
	name := t.Name()

	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if ok {
		return &inProcessTask{name: name, handler: h}, nil
	}

	if path, ok := r.lookupPath(name); ok {
		return &processTask{name: name, path: path, searchPath: r.SearchPath, logger: r.Logger}, nil
	}

	return nil, &engineerr.ResolutionError{Command: t.Command, Err: engineerr.ErrUnknownTask}
}

// lookupPath searches SearchPath's directories, in order, for an
// executable regular file named name.
func (r *Resolver) lookupPath(name string) (string, bool) {
	for _, dir := range strings.Split(r.SearchPath, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0111 != 0 {
			return candidate, true
		}
	}
	return "", false
}
