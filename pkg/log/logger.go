package log

// Logger is the structured logger used across the client. Every method takes
// a message followed by alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at the highest severity. The zap backed logger exits the
	// process afterwards.
	Fatal(msg string, keysAndValues ...any)

	// WithKV returns a child logger that attaches key/value to every entry.
	WithKV(key string, value any) Logger
	// GetAllKV returns the pairs attached through WithKV, oldest first.
	GetAllKV() []any
	// WithName returns a child logger whose name is extended with name.
	WithName(name string) Logger
	Name() string
	// AddCallerSkip returns a logger that reports the caller skip frames
	// further up the stack. Implementations without caller info return
	// themselves.
	AddCallerSkip(skip int) Logger
}

// Level is the severity of an entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}

// SpanEventRecorder receives log entries as trace span events.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string
	RecordEvent(name string, keysAndValues ...any)
	// RecordError records the event and marks the span as failed.
	RecordError(name string, keysAndValues ...any)
}

var _ Logger = NoopLogger{}

// NoopLogger drops everything. It is the default logger of every component.
type NoopLogger struct{}

// NewNoopLogger returns a logger that discards every entry.
func NewNoopLogger() Logger { return NoopLogger{} }

// Debug discards the entry.
func (NoopLogger) Debug(string, ...any) {}

// Info discards the entry.
func (NoopLogger) Info(string, ...any) {}

// Warn discards the entry.
func (NoopLogger) Warn(string, ...any) {}

// Error discards the entry.
func (NoopLogger) Error(string, ...any) {}

// Fatal discards the entry. Unlike ZapLogger it does not exit the process.
func (NoopLogger) Fatal(string, ...any) {}

// WithKV returns the logger itself, since there is nothing to annotate.
func (n NoopLogger) WithKV(string, any) Logger { return n }

// GetAllKV always returns an empty slice.
func (NoopLogger) GetAllKV() []any { return []any{} }

// WithName returns the logger itself.
func (n NoopLogger) WithName(string) Logger { return n }

// Name always returns "noop".
func (NoopLogger) Name() string { return "noop" }

// AddCallerSkip returns the logger itself, since no caller is recorded.
func (n NoopLogger) AddCallerSkip(int) Logger { return n }
