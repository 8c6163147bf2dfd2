package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkaclient/polkaclient/pkg/log"
)

type bufferSyncer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufferSyncer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferSyncer) Sync() error { return nil }

func (b *bufferSyncer) entries(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	sink := &bufferSyncer{}
	lg := log.NewZapLogger(log.Config{Format: "json", Level: log.LevelInfo, Output: "stdout"}, sink)
	lg = lg.WithName("rpc-client").WithKV("endpoint", "ws://node")

	lg.Debug("filtered out")
	lg.Info("connected", "session", "abc")
	lg.Warn("slow handler", "queued", 3)

	entries := sink.entries(t)
	require.Len(t, entries, 2)

	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "connected", entries[0]["msg"])
	assert.Equal(t, "rpc-client", entries[0]["logger"])
	assert.Equal(t, "ws://node", entries[0]["endpoint"])
	assert.Equal(t, "abc", entries[0]["session"])
	assert.Contains(t, entries[0]["caller"], "log/log_test.go")

	assert.Equal(t, "warn", entries[1]["level"])
	assert.EqualValues(t, 3, entries[1]["queued"])
}

func TestZapLogger_NameAndKV(t *testing.T) {
	lg := log.NewZapLogger(log.Config{Format: "json", Output: "stdout"}, &bufferSyncer{})

	child := lg.WithName("a").WithName("b").WithKV("k1", 1).WithKV("k2", "v")
	assert.Equal(t, "a.b", child.Name())
	assert.Equal(t, []any{"k1", 1, "k2", "v"}, child.GetAllKV())
	assert.Empty(t, lg.GetAllKV())
}

func TestLevel_Valid(t *testing.T) {
	assert.True(t, log.LevelDebug.Valid())
	assert.True(t, log.LevelFatal.Valid())
	assert.False(t, log.Level("trace").Valid())
}

type recordedEvent struct {
	name  string
	kvs   []any
	isErr bool
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) TraceID() string { return "trace-1" }
func (r *fakeRecorder) SpanID() string  { return "span-1" }

func (r *fakeRecorder) RecordEvent(name string, kvs ...any) {
	r.events = append(r.events, recordedEvent{name: name, kvs: kvs})
}

func (r *fakeRecorder) RecordError(name string, kvs ...any) {
	r.events = append(r.events, recordedEvent{name: name, kvs: kvs, isErr: true})
}

func TestSpanLogger(t *testing.T) {
	sink := &bufferSyncer{}
	base := log.NewZapLogger(log.Config{Format: "json", Level: log.LevelDebug, Output: "stdout"}, sink).
		WithName("subscriptions").
		WithKV("topic", "balance")
	rec := &fakeRecorder{}
	lg := log.NewSpanLogger(base, rec)

	lg.Info("delivered", "sub", "0x01")
	lg.Error("handler failed", "err", "boom")

	require.Len(t, rec.events, 2)
	assert.Equal(t, "delivered", rec.events[0].name)
	assert.False(t, rec.events[0].isErr)
	assert.Equal(t, []any{"level", "info", "component", "subscriptions", "topic", "balance", "sub", "0x01"}, rec.events[0].kvs)
	assert.True(t, rec.events[1].isErr)

	entries := sink.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, "trace-1", entries[0]["traceId"])
	assert.Equal(t, "span-1", entries[0]["spanId"])
	assert.Equal(t, "0x01", entries[0]["sub"])
	assert.Contains(t, entries[0]["caller"], "log/log_test.go")
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	_, isNoop := log.FromContext(ctx).(log.NoopLogger)
	assert.True(t, isNoop)

	lg := log.NewZapLogger(log.Config{Output: "stdout"})
	ctx = log.SetContextLogger(ctx, lg)
	_, isZap := log.FromContext(ctx).(*log.ZapLogger)
	assert.True(t, isZap)

	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: [16]byte{1},
		SpanID:  [8]byte{1},
	}))
	ctx = log.SetContextLogger(ctx, lg)
	_, isSpan := log.FromContext(ctx).(log.SpanLogger)
	assert.True(t, isSpan)

	ctx = log.SetContextLogger(context.Background(), nil)
	_, isNoop = log.FromContext(ctx).(log.NoopLogger)
	assert.True(t, isNoop)
}

func TestNoopLogger(t *testing.T) {
	lg := log.NewNoopLogger()
	assert.NotPanics(t, func() {
		lg.Debug("d", "k", 1)
		lg.Info("i")
		lg.Warn("w")
		lg.Error("e")
		lg.Fatal("f")
	})

	derived := lg.WithName("rpc-client").WithKV("session", "s1").AddCallerSkip(1)
	assert.Equal(t, lg, derived)
	assert.Equal(t, "noop", derived.Name())
	assert.Empty(t, derived.GetAllKV())
	assert.NotNil(t, derived.GetAllKV())
}
