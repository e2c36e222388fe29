// Package skin renders the event bus's timeline to a user-facing
// surface. Only the raw line skin is implemented; the curses-style TUI
// named in the source tool is out of scope (spec §9 Non-goals).
package skin

import (
	"errors"
	"fmt"
	"io"

	"github.com/jujuqa/matrix/internal/bus"
)

// ErrNotImplemented marks a skin the CLI accepted but cannot render.
var ErrNotImplemented = errors.New("skin not implemented")

// Skin renders the run's progress to a user-facing surface.
type Skin interface {
	// Attach subscribes the skin to b and returns an unsubscribe func.
	Attach(b *bus.Bus) (unsubscribe func())
}

// Raw writes one formatted line per bus event to w, matching the
// source tool's --skin=raw fallback output.
type Raw struct {
	W io.Writer
}

// NewRaw builds a Raw skin writing to w.
func NewRaw(w io.Writer) *Raw { return &Raw{W: w} }

func (r *Raw) Attach(b *bus.Bus) (unsubscribe func()) {
	id := b.Subscribe(func(ev bus.Event) {
		fmt.Fprintf(r.W, "%s %-16s origin=%s payload=%+v\n", ev.Time.Format("15:04:05.000"), ev.Kind, ev.Origin, ev.Payload)
	}, bus.Prefixed(""))
	return func() { b.Unsubscribe(id) }
}

// TUI is a placeholder for the source tool's curses-style interactive
// skin. Attach subscribes nothing and returns a no-op unsubscribe, and
// Unavailable always reports ErrNotImplemented: building a terminal UI
// was explicitly dropped from scope.
type TUI struct{}

// NewTUI builds an unimplemented TUI skin.
func NewTUI() *TUI { return &TUI{} }

func (t *TUI) Attach(b *bus.Bus) (unsubscribe func()) {
	return func() {}
}

// Unavailable reports that the TUI skin cannot actually render,
// letting the CLI fail fast on --skin=tui instead of silently
// degrading to raw output.
func (t *TUI) Unavailable() error { return ErrNotImplemented }
