package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestOtelAttributes(t *testing.T) {
	attrs := otelAttributes([]any{
		"ok", true,
		"n", 7,
		"u", uint32(9),
		"f", 1.5,
		"err", errors.New("boom"),
		"dangling",
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.Bool("ok", true),
		attribute.Int("n", 7),
		attribute.Int64("u", 9),
		attribute.Float64("f", 1.5),
		attribute.String("err", "boom"),
		attribute.String("dangling", missingAttrValue),
	}, attrs)
}

func TestOtelAttributes_NonStringKey(t *testing.T) {
	attrs := otelAttributes([]any{"a", "b", 42, "c"})

	assert.Len(t, attrs, 2)
	assert.Equal(t, attribute.String("a", "b"), attrs[0])
	assert.Equal(t, attribute.Key(badAttrKey), attrs[1].Key)
	assert.Equal(t, "[42 c]", attrs[1].Value.AsString())
}
