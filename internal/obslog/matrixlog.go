package obslog

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jujuqa/matrix/internal/bus"
)

// MatrixLogConfig controls the matrix.log output target.
type MatrixLogConfig struct {
	// Dir is the output directory; the file is written to Dir/matrix.log.
	Dir string
	// MaxSizeMB is the size in megabytes at which the log is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to retain.
	MaxBackups int
	// Compress gzips rotated files when true, matching the CLI's
	// optionally-gzipped matrix.log persisted-state contract.
	Compress bool
}

// MatrixLogTarget is a bus subscriber that appends every event it observes
// to matrix.log, one line per event. It is grounded on the teacher's
// eventlogger file output target, simplified to a single always-on target
// and backed by lumberjack for rotation instead of the teacher's hand
// rolled rotation logic.
type MatrixLogTarget struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

// NewMatrixLogTarget opens (creating parent directories as needed) the
// rotating matrix.log file described by cfg.
func NewMatrixLogTarget(cfg MatrixLogConfig) *MatrixLogTarget {
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "matrix.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return &MatrixLogTarget{writer: lj}
}

// Handler returns a bus.Handler suitable for bus.Subscribe(target.Handler(), bus.Prefixed("")).
func (t *MatrixLogTarget) Handler() func(bus.Event) {
	return func(e bus.Event) {
		t.mu.Lock()
		defer t.mu.Unlock()
		fmt.Fprintf(t.writer, "%s %-16s origin=%s created=%s payload=%+v\n",
			e.Time.Format("2006-01-02T15:04:05.000Z07:00"), e.Kind, e.Origin, e.Created, e.Payload)
	}
}

// Close flushes and closes the underlying file.
func (t *MatrixLogTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writer.Close()
}
