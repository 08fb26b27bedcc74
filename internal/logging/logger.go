package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs per-call trace information and all above
	LevelTrace
)

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a level name (case-insensitive) to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	for level, levelName := range levelNames {
		if strings.EqualFold(name, levelName) {
			return level, true
		}
	}
	return LevelInfo, false
}

// levelState is shared by a logger and every logger derived from it.
type levelState struct {
	mu    sync.RWMutex
	level LogLevel
}

// Logger provides levelled, prefixed logging on top of charmbracelet/log.
type Logger struct {
	state  *levelState
	prefix string
	logger *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("resfs")

		if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			defaultLogger.SetLevel(level)
		}

		if os.Getenv("RESFS_DEBUG") != "" {
			defaultLogger.SetLevel(LevelDebug)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given prefix. Output goes to
// stderr so it never interleaves with what the consuming process prints.
func NewLogger(prefix string) *Logger {
	return newLogger(os.Stderr, prefix)
}

func newLogger(w io.Writer, prefix string) *Logger {
	backend := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000000",
		Prefix:          prefix,
		Level:           log.DebugLevel,
	})
	return &Logger{
		state:  &levelState{level: LevelInfo},
		prefix: prefix,
		logger: backend,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
}

// Level returns the current logging level
func (l *Logger) Level() LogLevel {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

// SetOutput redirects this logger's output. Loggers already derived with
// WithPrefix keep writing where they were.
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level <= l.Level()
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.Enabled(LevelError) {
		l.logger.Errorf(format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.Enabled(LevelWarn) {
		l.logger.Warnf(format, args...)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Enabled(LevelInfo) {
		l.logger.Infof(format, args...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Enabled(LevelDebug) {
		l.logger.Debugf(format, args...)
	}
}

// Trace logs a trace message. charmbracelet/log has no level below debug,
// so trace lines are debug lines tagged with the level name.
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.Enabled(LevelTrace) {
		l.logger.Debugf("[TRACE] "+format, args...)
	}
}

// WithPrefix creates a new logger with an additional prefix. The derived
// logger shares the parent's level and output.
func (l *Logger) WithPrefix(prefix string) *Logger {
	full := prefix
	if l.prefix != "" {
		full = l.prefix + "/" + prefix
	}
	return &Logger{
		state:  l.state,
		prefix: full,
		logger: l.logger.WithPrefix(full),
	}
}
