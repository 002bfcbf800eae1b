package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapLogger(zap.New(core)), logs
}

func TestLogger_Levels(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Debug("hidden")
	logger.Info("info ", 1)
	logger.Error("error")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "info 1", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestLogger_WithFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	scoped := logger.WithFields(map[string]interface{}{
		"topic": "DATA-UPDATE",
		"size":  3,
	})
	scoped.Info("with fields")
	logger.Info("without fields")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"topic": "DATA-UPDATE", "size": int64(3)}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestLogger_WithContext(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	logger.WithContext(context.Background()).Info("no span")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.WithContext(ctx).Info("in span")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, sc.TraceID().String(), entries[1].ContextMap()["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entries[1].ContextMap()["span_id"])
}

func TestLogger_Constructors(t *testing.T) {
	// console and JSON loggers write to the process streams; make sure they work
	NewDefaultLogger().WithFields(map[string]interface{}{"component": "test"}).Info("console logger")
	NewJSONLogger().Info("json logger")
	NewLogger(LoggerConfig{Level: "ERROR"}).Info("dropped")
	NewNopLogger().Error("discarded")

	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("INFO"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("bogus"))
}
