// Package logging sets up the application loggers on top of log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	levelVar            = new(slog.LevelVar)
	mu                  sync.RWMutex
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Add trace and fatal level names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

// Init initializes the logging system with structured and human-readable loggers.
// It configures JSON output for structured logs and Text output for human-readable logs.
func Init() {
	InitWithOutput(os.Stdout, os.Stderr)
}

// InitWithOutput initializes the loggers against arbitrary writers, used in tests.
func InitWithOutput(structuredOutput, humanReadableOutput io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	levelVar.Set(slog.LevelInfo)

	structuredHandler := slog.NewJSONHandler(structuredOutput, &slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: replaceLevelNames,
	})
	structuredLogger = slog.New(structuredHandler)

	humanReadableHandler := slog.NewTextHandler(humanReadableOutput, &slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: replaceLevelNames,
	})
	humanReadableLogger = slog.New(humanReadableHandler)

	slog.SetDefault(structuredLogger)
}

// SetLevel sets the minimum logging level for both loggers.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Structured returns the JSON logger, initializing the system if needed.
func Structured() *slog.Logger {
	mu.RLock()
	l := structuredLogger
	mu.RUnlock()
	if l == nil {
		Init()
		return structuredLogger
	}
	return l
}

// HumanReadable returns the text logger, initializing the system if needed.
func HumanReadable() *slog.Logger {
	mu.RLock()
	l := humanReadableLogger
	mu.RUnlock()
	if l == nil {
		Init()
		return humanReadableLogger
	}
	return l
}

// ForService returns a structured logger scoped to a named service.
func ForService(serviceName string) *slog.Logger {
	return Structured().With("service", serviceName)
}
