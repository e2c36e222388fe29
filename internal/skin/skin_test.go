package skin

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujuqa/matrix/internal/bus"
)

func TestRawAttachWritesEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	b := bus.New(bus.Config{Origin: "test"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	raw := NewRaw(&buf)
	unattach := raw.Attach(b)
	defer unattach()

	b.Dispatch(bus.KindTestStart, "deploy")

	require.Eventually(t, func() bool {
		return buf.Len() > 0
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, buf.String(), "test.start")
}

func TestRawUnattachStopsDelivery(t *testing.T) {
	var buf bytes.Buffer
	b := bus.New(bus.Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	raw := NewRaw(&buf)
	unattach := raw.Attach(b)
	unattach()

	b.Dispatch(bus.KindTestStart, "deploy")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, buf.String())
}

func TestTUIUnavailableReportsNotImplemented(t *testing.T) {
	tui := NewTUI()
	assert.True(t, errors.Is(tui.Unavailable(), ErrNotImplemented))
}
