// Package logger holds the process wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// ParseLevel converts "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// New creates a text logger writing to w.
func New(w io.Writer, level string) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
}

// InitLogger installs a logger writing to stderr as the global and slog default logger.
// Standard output is left to command results such as module dumps.
func InitLogger(level string) error {
	return InitLoggerWithWriter(os.Stderr, level)
}

// InitLoggerWithWriter is InitLogger with a custom destination.
func InitLoggerWithWriter(w io.Writer, level string) error {
	l, err := New(w, level)
	if err != nil {
		return err
	}
	globalLogger = l
	slog.SetDefault(globalLogger)
	return nil
}

// GetLogger returns the global logger, or slog.Default() before InitLogger.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}
