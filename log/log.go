// Package log provides the structured logging surface used throughout the
// engine. Every package logs through this interface rather than fmt.Println
// or the standard library log package, so the backend can be swapped without
// touching call sites.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default is the package-level logger used by every core component. It is a
// variable, not a constant, so tests and embeddings can substitute their own
// Logger implementation.
var Default Logger = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	),
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

// SetLevel sets the log level to the specified level. Valid levels are
// "debug", "info", "warn", "error", "fatal"; anything else is treated as
// "info".
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger is the logging interface every engine package depends on.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
}

// Debug logs at DEBUG level.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs at DEBUG level with formatting.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs at INFO level.
func Info(args ...any) { Default.Info(args...) }

// Infof logs at INFO level with formatting.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs at WARN level.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs at WARN level with formatting.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs at ERROR level.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs at ERROR level with formatting.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }
