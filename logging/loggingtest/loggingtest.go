// Package loggingtest installs a throwaway global logger for tests
package loggingtest

import (
	"log/slog"
	"testing"

	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/logging"
)

// Reset installs a fresh global logger writing to dir and removes it
// when the test ends. An empty dir logs to the console only.
func Reset(t testing.TB, dir string, env config.Environment, level string, retentionWeeks int, maxFileSize int64) {
	t.Helper()

	previousDefault := slog.Default()
	logging.InitLoggerWithOptions(dir, logging.Options{
		Env:            env,
		Level:          level,
		Verbose:        testing.Verbose(),
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxFileSize,
	})

	t.Cleanup(func() {
		logging.Reset()
		slog.SetDefault(previousDefault)
	})
}

// Quiet is Reset with console-only test defaults
func Quiet(t testing.TB) {
	t.Helper()
	Reset(t, "", config.EnvTest, "", 4, logging.DefaultMaxFileSize)
}
