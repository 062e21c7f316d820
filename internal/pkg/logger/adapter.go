package logger

import (
	"log/slog"

	"vest_orchestrator/internal/app/port"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// slogAdapter implements port.Logger on top of a slog.Logger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter returns a port.Logger writing to the global logger.
func NewSlogAdapter() port.Logger {
	ensureInitialized()
	return &slogAdapter{l: globalLogger}
}

// Component returns a port.Logger tagged with a component name.
func Component(name string) port.Logger {
	ensureInitialized()
	return &slogAdapter{l: globalLogger.With("component", name)}
}

// NewNop returns a port.Logger that discards everything.
func NewNop() port.Logger {
	return &slogAdapter{l: slog.New(zapslog.NewHandler(zap.NewNop().Core()))}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	a.l.Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	a.l.Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	a.l.Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	a.l.Error(msg, args...)
}
