package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(initialLevel())
	logger = newLogger()
)

func initialLevel() zapcore.Level {
	if os.Getenv("DEBUG") == "true" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetDebug toggles debug output at runtime
func SetDebug(enabled bool) {
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// SetLogger replaces the underlying zap logger (tests use zaptest)
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// Logger returns the underlying logger for libraries that want one
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func with(subsystem string) *zap.SugaredLogger {
	return Logger().With("subsystem", subsystem)
}

// Info logs an informational message (always shown)
func Info(subsystem, format string, args ...any) {
	with(subsystem).Infof(format, args...)
}

// Debug logs a debug message (only shown if DEBUG=true)
func Debug(subsystem, format string, args ...any) {
	with(subsystem).Debugf(format, args...)
}

// Warn logs a recoverable problem
func Warn(subsystem, format string, args ...any) {
	with(subsystem).Warnf(format, args...)
}

// Error logs a failure that is being returned to the caller
func Error(subsystem, format string, args ...any) {
	with(subsystem).Errorf(format, args...)
}

// Sync flushes buffered log entries
func Sync() {
	_ = Logger().Sync()
}

// Truncate truncates a string to maxLen and adds ellipsis
func Truncate(s string, maxLen int) string {
	// Replace newlines with spaces for one-line logs
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
