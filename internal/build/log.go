// Package build provides the logging primitives shared by every subsystem
// of txindexd: a rotating log file writer and helpers for registering
// per-subsystem loggers against a single root backend.
package build

import (
	"io"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogSubsystem is implemented by packages that expose a replaceable,
// package-level logger and want to be wired up once the root logger is
// ready.
type LogSubsystem interface {
	// UseLogger sets the subsystem logger.
	UseLogger(logger slog.Logger)
}

// RotatingLogWriter wraps a log rotator and a slog backend, and keeps track
// of the individual subsystem loggers that have been registered against it
// so their levels can be changed in bulk (e.g. from a debuglevel flag).
type RotatingLogWriter struct {
	backend  *slog.Backend
	rotator  *rotator.Rotator
	subsystems map[string]slog.Logger
}

// NewRotatingLogWriter creates an empty RotatingLogWriter. Output goes to
// stdout and a rotated log file once InitLogRotator has been called.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{
		subsystems: make(map[string]slog.Logger),
	}
}

// InitLogRotator opens logFile for writing through a rotator of the given
// size threshold (in kilobytes) and history depth, and attaches the slog backend to the
// combination of stdout and the rotator.
func (r *RotatingLogWriter) InitLogRotator(logFile string, maxSize int64, maxRolls int) error {
	rr, err := rotator.New(logFile, maxSize, false, maxRolls)
	if err != nil {
		return err
	}
	r.rotator = rr

	var w io.Writer = io.MultiWriter(os.Stdout, logWriterAdapter{rr})
	r.backend = slog.NewBackend(w)
	return nil
}

// logWriterAdapter adapts a rotator.Rotator to io.Writer for use with
// slog.NewBackend, which only needs Write.
type logWriterAdapter struct {
	rr *rotator.Rotator
}

func (a logWriterAdapter) Write(b []byte) (int, error) {
	return a.rr.Write(b)
}

// GenSubLogger creates a new slog.Logger for subsystem tag, backed by the
// writer's rotating backend. If the backend has not been initialized (as
// in tests), logs go to stdout only.
func (r *RotatingLogWriter) GenSubLogger(tag string) slog.Logger {
	if r.backend == nil {
		r.backend = slog.NewBackend(os.Stdout)
	}
	return r.backend.Logger(tag)
}

// RegisterSubLogger tracks logger under subsystem so its level can later be
// changed via SetLogLevels.
func (r *RotatingLogWriter) RegisterSubLogger(subsystem string, logger slog.Logger) {
	r.subsystems[subsystem] = logger
}

// SetLogLevels sets every registered subsystem logger to level.
func (r *RotatingLogWriter) SetLogLevels(level slog.Level) {
	for _, logger := range r.subsystems {
		logger.SetLevel(level)
	}
}

// NewSubLogger returns a logger for subsystem. If genLogger is nil (the
// root logger has not been set up yet, as happens for package-level
// loggers declared at init time) it returns a disabled logger instead of
// panicking, so packages can safely log before SetupLoggers runs.
func NewSubLogger(subsystem string, genLogger func(string) slog.Logger) slog.Logger {
	if genLogger == nil {
		return slog.Disabled
	}
	return genLogger(subsystem)
}
