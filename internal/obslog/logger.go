// Package obslog provides the engine's logging facade and the matrix.log
// bus subscriber that persists the run's event timeline to disk.
package obslog

import (
	"log/slog"
	"os"
)

// Logger is the structured logging interface used throughout the engine.
// It is deliberately small and key-value based so it can be backed by
// log/slog, zap, or any other structured logger an embedder prefers.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// SlogLogger adapts *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger builds a SlogLogger writing text-formatted records to w at
// the given level ("debug", "info", "warn", "error").
func NewSlogLogger(w *os.File, level string) *SlogLogger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return &SlogLogger{logger: slog.New(handler)}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
