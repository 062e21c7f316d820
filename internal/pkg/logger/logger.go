package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var globalLogger *slog.Logger

// Init builds a zap logger for the given level and encoding ("json" or
// "console") and installs it, through zapslog, as the slog default.
// The returned zap logger must be synced by the caller before exit.
func Init(levelStr string, format string) (*zap.Logger, error) {
	level, levelErr := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if levelErr != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	globalLogger = slog.New(zapslog.NewHandler(zapLogger.Core()))
	slog.SetDefault(globalLogger)

	if levelErr != nil {
		globalLogger.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zapLogger, nil
}

func ensureInitialized() {
	if globalLogger == nil {
		if _, err := Init("info", "json"); err != nil {
			globalLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
		}
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Debug(msg, args...)
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Log(context.Background(), slog.LevelError, msg, args...)
	os.Exit(1)
}
