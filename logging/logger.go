// Package logging provides a tiny abstraction over structured loggers so
// downstream code can depend on a minimal interface (Logger) while allowing
// users to plug slog, zap, or anything else that speaks key/value pairs.
package logging

import (
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
)

// Logger defines the minimal logging interface used across the engine.
// Arguments are alternating key/value pairs, as in slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewJSONLogger creates a Logger emitting JSON records at the given level.
func NewJSONLogger(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stdout
	}
	return NewSlogAdapter(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// ZapAdapter wraps a *zap.SugaredLogger to implement the Logger interface.
// The sugared form is used because the Logger contract carries loosely typed
// key/value pairs.
type ZapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapAdapter creates a Logger from *zap.Logger.
func NewZapAdapter(logger *zap.Logger) Logger {
	return &ZapAdapter{s: logger.Sugar()}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.s.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.s.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// NoOpLogger discards all log messages. Useful for testing or when logging is
// disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
