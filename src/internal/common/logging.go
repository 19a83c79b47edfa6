package common

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

var logLevelNames = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogWarn:  "WARN",
	LogError: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLogLevel converts a config string ("debug", "info", ...) to a LogLevel.
// Unknown values fall back to LogInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace", "verbose":
		return LogDebug
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	default:
		return LogInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogDebug:
		return zapcore.DebugLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SafeLogger provides STDIO-safe logging that never writes to stdout.
// stdout carries the LSP stream when serving over stdio.
type SafeLogger struct {
	prefix string
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
}

// NewSafeLogger creates a new safe logger with the given prefix writing to stderr
func NewSafeLogger(prefix string) *SafeLogger {
	return NewSafeLoggerWithWriter(prefix, os.Stderr)
}

// NewSafeLoggerWithWriter creates a logger writing to w. Used by tests to
// capture output.
func NewSafeLoggerWithWriter(prefix string, w io.Writer) *SafeLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return &SafeLogger{
		prefix: prefix,
		level:  level,
		sugar:  zap.New(core).Named(prefix).Sugar(),
	}
}

// SetLevel sets the minimum log level
func (l *SafeLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Enabled reports whether messages at level would be written
func (l *SafeLogger) Enabled(level LogLevel) bool {
	return l.level.Enabled(level.zapLevel())
}

// Debug logs a debug message
func (l *SafeLogger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *SafeLogger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *SafeLogger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *SafeLogger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries
func (l *SafeLogger) Sync() error {
	return l.sugar.Sync()
}

// Global logger instances for convenience
var (
	LSPLogger     = NewSafeLogger("LSP")
	ServerLogger  = NewSafeLogger("Server")
	ClientLogger  = NewSafeLogger("Client")
	CLILogger     = NewSafeLogger("CLI")
	GatewayLogger = NewSafeLogger("Gateway")
)

// SetGlobalLevel applies level to every package-level logger
func SetGlobalLevel(level LogLevel) {
	for _, l := range []*SafeLogger{LSPLogger, ServerLogger, ClientLogger, CLILogger, GatewayLogger} {
		l.SetLevel(level)
	}
}
