package logging

import (
	"log/slog"
	"os"
	"sync"

	"github.com/giygas/pedscalc-api/config"
)

type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	serviceMu             sync.Mutex
)

// InitLogger initializes the global logger with development defaults.
// An empty logDir logs to the console only.
func InitLogger(logDir string) {
	InitLoggerWithOptions(logDir, Options{
		Env:            config.EnvDevelopment,
		RetentionWeeks: 4,
		MaxFileSize:    DefaultMaxFileSize,
	})
}

// InitLoggerWithOptions initializes the global logger, closing any previous one
func InitLoggerWithOptions(logDir string, opts Options) {
	logger, rotator := SetupLogger(logDir, opts)

	serviceMu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = &LoggingService{Logger: logger, rotator: rotator}
	serviceMu.Unlock()

	slog.SetDefault(logger)

	if previous != nil && previous.rotator != nil {
		_ = previous.rotator.Close()
	}
}

// Close flushes and closes the log file of the global logger
func Close() error {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.rotator == nil {
		return nil
	}
	err := DefaultLoggingService.rotator.Close()
	DefaultLoggingService.rotator = nil
	return err
}

// Reset closes the global logger and forgets it, so the package helpers
// fall back to stderr until the next InitLogger
func Reset() {
	_ = Close()
	serviceMu.Lock()
	DefaultLoggingService = nil
	serviceMu.Unlock()
}

func current() *slog.Logger {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or slog's default before InitLogger
func Logger() *slog.Logger {
	if logger := current(); logger != nil {
		return logger
	}
	return slog.Default()
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
