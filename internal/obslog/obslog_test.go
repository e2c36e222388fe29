package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujuqa/matrix/internal/bus"
)

func TestSlogLoggerWritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logger := NewSlogLogger(f, "info")
	logger.Info("hello", "key", "value")
	logger.Error("boom", "err", "oops")

	require.NoError(t, f.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "boom")
}

func TestSlogLoggerDebugSuppressedAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logger := NewSlogLogger(f, "info")
	logger.Debug("should not appear")

	require.NoError(t, f.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
}

func TestSlogLoggerFallsBackToInfoOnBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logger := NewSlogLogger(f, "not-a-level")
	logger.Info("still logs")

	require.NoError(t, f.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "still logs")
}

func TestMatrixLogTargetWritesOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	target := NewMatrixLogTarget(MatrixLogConfig{Dir: dir, MaxSizeMB: 1})
	defer target.Close()

	handler := target.Handler()
	handler(bus.Event{Kind: "test.start", Origin: "driver", Payload: "deploy"})
	handler(bus.Event{Kind: "test.complete", Origin: "driver", Payload: "deploy"})

	data, err := os.ReadFile(filepath.Join(dir, "matrix.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test.start")
	assert.Contains(t, string(data), "test.complete")
}
