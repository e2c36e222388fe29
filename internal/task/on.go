package task

import (
	"context"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/state"
)

// RunOnEvent subscribes t to fire once per bus event matching pred,
// running synchronously on the bus's delivery goroutine. It backs a
// rule's `on` condition (§4.4 run phase: "invoked every time its
// statement's event occurs, for the life of the rule").
//
// A task invocation error is reported to onErr rather than returned,
// since the bus's Subscribe handler signature carries no error path;
// onErr is typically the rule runner's own failure channel.
func RunOnEvent(b *bus.Bus, pred bus.Predicate, t Task, sc *state.Context, args Args, onErr func(error)) (unsubscribe func()) {
	id := b.Subscribe(func(ev bus.Event) {
		if err := t.Invoke(context.Background(), sc, args, &ev); err != nil && onErr != nil {
			onErr(err)
		}
	}, pred)
	return func() { b.Unsubscribe(id) }
}
