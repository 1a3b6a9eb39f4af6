package internal

import (
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

var levelNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name to a level. Unknown names give INFO.
func ParseLogLevel(s string) LogLevel {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i)
		}
	}
	return LogLevelInfo
}

// Logger writes "[LEVEL] message" lines at or below its verbosity
type Logger struct {
	level LogLevel
	out   *log.Logger
}

// NewLogger creates a stderr logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(level, log.New(os.Stderr, "hmetrics ", log.LstdFlags))
}

// NewLoggerTo creates a logger writing through l
func NewLoggerTo(level LogLevel, l *log.Logger) *Logger {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	return &Logger{level: level, out: l}
}

// NewDefaultLogger creates a logger based on the LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

func (l *Logger) printf(level LogLevel, format string, args []interface{}) {
	if l.level < level {
		return
	}
	l.out.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) { l.printf(LogLevelError, format, args) }
func (l *Logger) Warn(format string, args ...interface{})  { l.printf(LogLevelWarn, format, args) }
func (l *Logger) Info(format string, args ...interface{})  { l.printf(LogLevelInfo, format, args) }
func (l *Logger) Debug(format string, args ...interface{}) { l.printf(LogLevelDebug, format, args) }
func (l *Logger) Trace(format string, args ...interface{}) { l.printf(LogLevelTrace, format, args) }

// Level returns the current verbosity
func (l *Logger) Level() LogLevel {
	return l.level
}

// SetLevel changes the verbosity
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// DefaultLogger is used by components constructed without a logger
var DefaultLogger = NewDefaultLogger()
