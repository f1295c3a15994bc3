// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// MaxLogValueLength limits the length of log values. Method xml blobs are
// large, so values longer than this are truncated.
const MaxLogValueLength = 1024

// Logger interface for pluggable logging support
//
// Implementations should use structured logging with key-value pairs.
// The library provides three implementations:
//   - DefaultLogger: Wraps Go's standard log package with configurable log level
//   - ZapLogger: Adapts a *zap.Logger
//   - NoOpLogger: Zero-overhead logging when disabled (default)
//
// Example custom logger integration:
//
//	type SlogAdapter struct {
//	    logger *slog.Logger
//	}
//
//	func (s *SlogAdapter) Debug(ctx context.Context, msg string, keysAndValues ...any) {
//	    s.logger.DebugContext(ctx, msg, keysAndValues...)
//	}
//	// ... implement Info, Warn, Error
//
//	client, _ := empower.NewClient("https://empower.example.com:3076",
//	    empower.WithLogger(&SlogAdapter{logger: slog.Default()}))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel represents the severity threshold for logging
type LogLevel int

const (
	// LogLevelDebug enables all log levels (most verbose)
	LogLevelDebug LogLevel = iota

	// LogLevelInfo enables Info, Warn, and Error logs
	LogLevelInfo

	// LogLevelWarn enables Warn and Error logs
	LogLevelWarn

	// LogLevelError enables only Error logs
	LogLevelError

	// LogLevelNone disables all logging
	LogLevelNone
)

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// DefaultLogger wraps Go's standard log package with configurable log level
//
// Log output format: [LEVEL] message key1=value1 key2=value2
//
// Example:
//
//	logger := empower.NewDefaultLogger(empower.LogLevelDebug)
//	client, _ := empower.NewClient("https://empower.example.com:3076",
//	    empower.Username("system"),
//	    empower.Password("secret"),
//	    empower.WithLogger(logger))
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger creates a DefaultLogger with the specified log level
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// Debug logs a debug message with structured key-value pairs
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with structured key-value pairs
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with structured key-value pairs
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues...)
}

// sanitizeLogValue flattens a log value onto one line and caps its length.
// Method xml and server messages are logged as values, and both contain
// newlines and arbitrary text from the instrument configuration.
//
//	"<Flow>\n[ERROR] fake" -> "<Flow> [ERROR] fake"
func sanitizeLogValue(val any) string {
	str := fmt.Sprint(val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}
	return strings.Map(sanitizeRune, str)
}

func sanitizeRune(r rune) rune {
	switch r {
	case '\n', '\r', '\t', '\f', '\u202e':
		return ' '
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return -1
	case utf8.RuneError:
		return '.'
	}
	if r < 0x20 || r == 0x7f {
		return '.'
	}
	return r
}

// log formats and outputs a log message with structured key-value pairs
//
// Keys and values are sanitized. The message string is not, it comes from
// the library itself.
func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues ...any) {
	if l.level == LogLevelNone || level < l.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		value := "<MISSING>"
		if i+1 < len(keysAndValues) {
			value = sanitizeLogValue(keysAndValues[i+1])
		}
		fmt.Fprintf(&b, " %s=%s", sanitizeLogValue(keysAndValues[i]), value)
	}

	log.Println(b.String())
}

// NoOpLogger is a no-operation logger that discards all log messages
//
// This is the default logger of Client and MethodFactory when no logger is
// configured.
type NoOpLogger struct{}

// Debug discards the log message
func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}

// Info discards the log message
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any) {}

// Warn discards the log message
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any) {}

// Error discards the log message
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
