package log

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Logger = SpanLogger{}

// SpanLogger forwards every entry to a wrapped logger and mirrors it into a
// trace span. Entries written to the wrapped logger carry traceId and spanId.
type SpanLogger struct {
	lg  Logger
	ser SpanEventRecorder
}

// NewSpanLogger wraps lg so that every entry is also recorded through ser.
// One caller frame is skipped so lg still reports the real call site.
func NewSpanLogger(lg Logger, ser SpanEventRecorder) Logger {
	return SpanLogger{lg: lg.AddCallerSkip(1), ser: ser}
}

// Debug records a span event and writes the entry to the wrapped logger.
func (sl SpanLogger) Debug(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventAttrs(LevelDebug, keysAndValues)...)
	sl.lg.Debug(msg, sl.traceAttrs(keysAndValues)...)
}

// Info records a span event and writes the entry to the wrapped logger.
func (sl SpanLogger) Info(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventAttrs(LevelInfo, keysAndValues)...)
	sl.lg.Info(msg, sl.traceAttrs(keysAndValues)...)
}

// Warn records a span event and writes the entry to the wrapped logger.
func (sl SpanLogger) Warn(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventAttrs(LevelWarn, keysAndValues)...)
	sl.lg.Warn(msg, sl.traceAttrs(keysAndValues)...)
}

// Error records the entry as a span error, which also sets the span status,
// and writes it to the wrapped logger.
func (sl SpanLogger) Error(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.eventAttrs(LevelError, keysAndValues)...)
	sl.lg.Error(msg, sl.traceAttrs(keysAndValues)...)
}

// Fatal records a span error before writing the entry, because the wrapped
// logger may exit the process.
func (sl SpanLogger) Fatal(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.eventAttrs(LevelFatal, keysAndValues)...)
	sl.lg.Fatal(msg, sl.traceAttrs(keysAndValues)...)
}

// WithKV returns a SpanLogger over lg.WithKV that keeps the same span.
func (sl SpanLogger) WithKV(key string, value any) Logger {
	return SpanLogger{lg: sl.lg.WithKV(key, value), ser: sl.ser}
}

// GetAllKV returns the pairs of the wrapped logger.
func (sl SpanLogger) GetAllKV() []any { return sl.lg.GetAllKV() }

// WithName returns a SpanLogger over lg.WithName that keeps the same span.
func (sl SpanLogger) WithName(name string) Logger {
	return SpanLogger{lg: sl.lg.WithName(name), ser: sl.ser}
}

// Name returns the name of the wrapped logger.
func (sl SpanLogger) Name() string { return sl.lg.Name() }

// AddCallerSkip adjusts the caller skip of the wrapped logger.
func (sl SpanLogger) AddCallerSkip(skip int) Logger {
	return SpanLogger{lg: sl.lg.AddCallerSkip(skip), ser: sl.ser}
}

func (sl SpanLogger) traceAttrs(keysAndValues []any) []any {
	out := make([]any, 0, len(keysAndValues)+4)
	out = append(out, "traceId", sl.ser.TraceID(), "spanId", sl.ser.SpanID())
	return append(out, keysAndValues...)
}

// eventAttrs prefixes the entry with its level, the logger name and the
// pairs attached through WithKV.
func (sl SpanLogger) eventAttrs(level Level, keysAndValues []any) []any {
	kvs := sl.lg.GetAllKV()
	out := make([]any, 0, len(kvs)+len(keysAndValues)+4)
	out = append(out, "level", string(level), "component", sl.lg.Name())
	out = append(out, kvs...)
	return append(out, keysAndValues...)
}

var _ SpanEventRecorder = &OtelSpanEventRecorder{}

const (
	missingAttrValue = "MISSING"
	badAttrKey       = "invalidKeysAndValues"
)

// OtelSpanEventRecorder records entries as events of an OpenTelemetry span.
type OtelSpanEventRecorder struct {
	span trace.Span
}

// NewOtelSpanEventRecorder returns a recorder that writes into span. The
// span is not ended by the recorder.
func NewOtelSpanEventRecorder(span trace.Span) *OtelSpanEventRecorder {
	return &OtelSpanEventRecorder{span: span}
}

// TraceID returns the hex trace id of the span.
func (r *OtelSpanEventRecorder) TraceID() string { return r.span.SpanContext().TraceID().String() }

// SpanID returns the hex span id of the span.
func (r *OtelSpanEventRecorder) SpanID() string { return r.span.SpanContext().SpanID().String() }

// RecordEvent adds a span event named name with the pairs as attributes.
func (r *OtelSpanEventRecorder) RecordEvent(name string, keysAndValues ...any) {
	r.span.AddEvent(name, trace.WithAttributes(otelAttributes(keysAndValues)...))
}

// RecordError adds the event and sets the span status to error.
func (r *OtelSpanEventRecorder) RecordError(name string, keysAndValues ...any) {
	r.span.AddEvent(name, trace.WithAttributes(otelAttributes(keysAndValues)...))
	r.span.SetStatus(codes.Error, name)
}

// otelAttributes converts alternating pairs into span attributes. A dangling
// key gets missingAttrValue; a non string key stops the conversion and the
// rest is stored verbatim under badAttrKey.
func otelAttributes(keysAndValues []any) []attribute.KeyValue {
	if len(keysAndValues)%2 != 0 {
		keysAndValues = append(keysAndValues, missingAttrValue)
	}

	attrs := make([]attribute.KeyValue, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			attrs = append(attrs, attribute.String(badAttrKey, fmt.Sprint(keysAndValues[i:])))
			break
		}
		attrs = append(attrs, otelAttribute(key, keysAndValues[i+1]))
	}
	return attrs
}

func otelAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int8:
		return attribute.Int64(key, int64(v))
	case int16:
		return attribute.Int64(key, int64(v))
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint8:
		return attribute.Int64(key, int64(v))
	case uint16:
		return attribute.Int64(key, int64(v))
	case uint32:
		return attribute.Int64(key, int64(v))
	case float32:
		return attribute.Float64(key, float64(v))
	case float64:
		return attribute.Float64(key, v)
	case error:
		return attribute.String(key, v.Error())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
