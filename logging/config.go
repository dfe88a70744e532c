package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/pedscalc-api/config"
)

// LogFilePrefix is the name prefix of every file the rotating logger owns
const LogFilePrefix = "pedscalc-"

// DefaultMaxFileSize is used when no size limit is configured
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

var numberedFileRegex = regexp.MustCompile(`^` + regexp.QuoteMeta(LogFilePrefix) + `\d{4}-W\d{2}_(\d{2})\.log$`)

// Options configures the global logger
type Options struct {
	Env            config.Environment
	Level          string // LOG_LEVEL override for the console, empty for the env default
	Verbose        bool   // Show info logs on the console in the test env
	RetentionWeeks int
	MaxFileSize    int64
}

// OptionsFromConfig maps the loaded configuration to logger options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}
}

// RotatingLogger writes to weekly log files, starting a numbered file when
// the current one reaches its size limit
type RotatingLogger struct {
	logDir         string
	currentFile    *os.File
	currentWeek    string
	retention      time.Duration
	maxFileSize    int64
	currentSize    atomic.Int64
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	cleanupStarted atomic.Bool
	cleanupDone    chan struct{}
}

// NewRotatingLogger creates a new rotating logger instance
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, DefaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a new rotating logger with custom size limit
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// doRotate performs actual rotation (caller must hold write lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	sizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, fresh := rl.pickFile(targetWeek, sizeRotation)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	rl.currentSize.Store(0)
	if !fresh {
		if info, err := file.Stat(); err == nil {
			rl.currentSize.Store(info.Size())
		}
	}

	return nil
}

// pickFile returns the file to append to for the week and whether it is new
func (rl *RotatingLogger) pickFile(targetWeek string, sizeRotation bool) (string, bool) {
	base := LogFilePrefix + targetWeek + ".log"

	if !sizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return base, false
		}
	}

	highest, lastPath, lastSize := rl.findHighestNumberedFile(targetWeek)
	if lastPath != "" && lastSize < rl.maxFileSize {
		return filepath.Base(lastPath), false
	}

	return fmt.Sprintf("%s%s_%02d.log", LogFilePrefix, targetWeek, highest+1), true
}

// findHighestNumberedFile returns the highest sequence number used this week,
// with that file's path and size
func (rl *RotatingLogger) findHighestNumberedFile(targetWeek string) (int, string, int64) {
	pattern := fmt.Sprintf("%s%s_??.log", LogFilePrefix, targetWeek)
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, pattern))

	highest := 0
	var lastPath string
	var lastSize int64

	for _, match := range matches {
		num, size := parseNumberedFile(match)
		if num > highest {
			highest = num
			lastPath = match
			lastSize = size
		}
	}

	return highest, lastPath, lastSize
}

// parseNumberedFile extracts the sequence number and file size from a numbered log file
func parseNumberedFile(path string) (int, int64) {
	m := numberedFileRegex.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0, 0
	}

	num, _ := strconv.Atoi(m[1])

	info, err := os.Stat(path)
	if err != nil {
		return num, 0
	}
	return num, info.Size()
}

// Write writes data to the current log file
func (rl *RotatingLogger) Write(p []byte) (n int, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	needsRotation := rl.currentWeek != week || rl.currentFile == nil

	if rl.maxFileSize > 0 && !needsRotation {
		size := rl.currentSize.Load()
		if size+int64(len(p)) > rl.maxFileSize && size > 0 {
			needsRotation = true
			rl.currentSize.Store(rl.maxFileSize)
		}
	}

	if needsRotation {
		if err = rl.doRotate(week); err != nil {
			return 0, err
		}
	}

	n, err = rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, LogFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deleted++
			}
		}
	}

	if deleted > 0 {
		// Console only, writing to the file logger here would recurse
		fmt.Printf("Cleaned up %d old log files\n", deleted)
	}

	return nil
}

// startCleanup runs cleanupOldLogs daily until Close
func (rl *RotatingLogger) startCleanup(interval time.Duration) {
	if !rl.cleanupStarted.CompareAndSwap(false, true) {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(rl.cleanupDone)

		for {
			select {
			case <-rl.ctx.Done():
				return
			case <-ticker.C:
				if err := rl.cleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to cleanup old logs: %v\n", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	if rl.cleanupStarted.Load() {
		select {
		case <-rl.cleanupDone:
		case <-time.After(5 * time.Second):
			fmt.Fprintln(os.Stderr, "Warning: log cleanup goroutine did not shutdown gracefully")
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, info when unknown
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel returns the console level for an environment.
// Tests stay quiet unless verbose, and ignore LOG_LEVEL.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the file level, files always keep everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func consoleLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupLogger builds a logger writing text to the console and JSON to
// rotating files in logDir. The returned RotatingLogger is nil when only
// the console is used and must be closed by the caller otherwise.
func SetupLogger(logDir string, opts Options) (*slog.Logger, *RotatingLogger) {
	consoleLevel := GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose)

	if logDir == "" {
		return consoleLogger(consoleLevel), nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logger := consoleLogger(consoleLevel)
		logger.Error("Failed to create logs directory", "error", err)
		return logger, nil
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	rl := NewRotatingLoggerWithSizeLimit(logDir, retention, maxSize)

	rl.mu.Lock()
	err := rl.doRotate(getWeekKey(time.Now()))
	rl.mu.Unlock()
	if err != nil {
		logger := consoleLogger(consoleLevel)
		logger.Error("Failed to initialize rotating logger", "error", err)
		return logger, nil
	}

	rl.startCleanup(24 * time.Hour)

	handler := &multiHandler{
		handlers: []slog.Handler{
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel}),
			slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: GetFileLogLevel()}),
		},
	}

	return slog.New(handler), rl
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
