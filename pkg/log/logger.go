package log

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// ComponentKey is the field name set by Component and WithComponent.
const ComponentKey = "component"

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger defines the logging interface used by feedstore components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithComponent tags logs with a component name.
	WithComponent(component string) Logger
	// WithError attaches err under the "error" key.
	WithError(err error) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// sink is shared by a logger and every logger derived from it with With.
type sink struct {
	level     atomic.Int32
	formatter Formatter
	outputs   []Output
}

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	sink       *sink
	slogLogger *slog.Logger
}

// NewLogger creates a new logger with the given options. Without options it
// writes JSON at info level to stderr.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{sink: &sink{formatter: &JSONFormatter{}}}
	logger.sink.level.Store(int32(InfoLevel))
	for _, option := range options {
		option(logger)
	}
	if len(logger.sink.outputs) == 0 {
		logger.sink.outputs = append(logger.sink.outputs, NewConsoleOutput())
	}
	logger.slogLogger = slog.New(newBridgeHandler(logger.sink))
	return logger
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return NewLogger(WithOutput(&NullOutput{}))
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) { l.sink.level.Store(int32(level)) }
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) { l.sink.formatter = formatter }
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) { l.sink.outputs = append(l.sink.outputs, output) }
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{sink: l.sink, slogLogger: l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...)}
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *BaseLogger) WithError(err error) Logger {
	return l.With(Err(err))
}

// SetLevel changes the level for this logger and every logger sharing its sink.
func (l *BaseLogger) SetLevel(level Level) { l.sink.level.Store(int32(level)) }

func (l *BaseLogger) GetLevel() Level { return Level(l.sink.level.Load()) }
