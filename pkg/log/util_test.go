package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	boom := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		keys  []string
	}{
		{"empty input", nil, nil},
		{"key values", []any{"plate", "AB-123", "fuel", 42.5, "admin", true}, []string{"plate", "fuel", "admin"}},
		{"time and duration", []any{"at", now, "took", time.Second}, []string{"at", "took"}},
		{"bare error", []any{boom}, []string{"error"}},
		{"zap field passthrough", []any{zap.String("x", "y"), "n", 1}, []string{"x", "n"}},
		{"dangling value", []any{"event", "vehicle:created", "orphan"}, []string{"event", "arg#2"}},
		{"non-string key", []any{7, "value"}, []string{"invalid_key_1"}},
		{"nil value", []any{"response", nil}, []string{"response"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			require.Len(t, fields, len(tt.keys))
			for i, f := range fields {
				assert.Equal(t, tt.keys[i], f.Key)
			}
		})
	}
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).WithName("sync").WithValues("view", "vehicles")

	l.Info("fetch finished", "rows", 3)
	l.Error(errors.New("timeout"), "fetch failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "sync", entries[0].LoggerName)
	assert.Equal(t, "vehicles", entries[0].ContextMap()["view"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["rows"])
	assert.Equal(t, "timeout", entries[1].ContextMap()["error"])
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Level = "loud"
	opts.Format = "xml"
	assert.Len(t, opts.Validate(), 2)
}
