package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("creates JSON logger with proper configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		logger.Info("test message",
			slog.String("component", "test"),
			slog.Int("count", 42))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"test message"`)
		assert.Contains(t, output, `"component":"test"`)
		assert.Contains(t, output, `"count":42`)
		assert.Contains(t, output, `"time":`)
	})

	t.Run("respects log level configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warning message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warning message")
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestLoggerHelpers(t *testing.T) {
	t.Run("LogError creates structured error log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "failed to decode trips", assert.AnError,
			slog.String("backend", "db"),
			slog.String("component", "restapi"))

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"failed to decode trips"`)
		assert.Contains(t, output, `"error":"assert.AnError general error for testing"`)
		assert.Contains(t, output, `"backend":"db"`)
	})

	t.Run("LogOperation logs structured operation info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "binary_trips_decoded",
			slog.String("backend", "db"),
			slog.Int("trips", 3),
			slog.Duration("duration", 0))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"binary_trips_decoded"`)
		assert.Contains(t, output, `"trips":3`)
		assert.NotContains(t, output, `"duration"`)
	})

	t.Run("LogOperationAt honours the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperationAt(logger, slog.LevelDebug, "hidden")
		assert.Empty(t, buf.String())

		LogOperationAt(logger, slog.LevelWarn, "shown", slog.Duration("duration", time.Second))
		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"duration":1000000000`)
	})

	t.Run("nil logger", func(t *testing.T) {
		LogOperation(nil, "ignored")
		LogError(nil, "ignored", assert.AnError)
		LogHTTPRequest(nil, "GET", "/", 200, 1)
	})

	t.Run("LogHTTPRequest logs request details", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogHTTPRequest(logger, "POST", "/api/db/trips/binary", 200, 1.5,
			slog.String("user_agent", "test-client"))

		output := buf.String()
		assert.Contains(t, output, `"msg":"http_request"`)
		assert.Contains(t, output, `"method":"POST"`)
		assert.Contains(t, output, `"path":"/api/db/trips/binary"`)
		assert.Contains(t, output, `"status":200`)
		assert.Contains(t, output, `"duration_ms":1.5`)
		assert.Contains(t, output, `"user_agent":"test-client"`)
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("stores and retrieves logger from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		retrieved := FromContext(WithLogger(context.Background(), logger))
		require.NotNil(t, retrieved)
		retrieved.Info("test from context")
		assert.Contains(t, buf.String(), "test from context")
	})

	t.Run("returns default logger when not in context", func(t *testing.T) {
		assert.Equal(t, slog.Default(), FromContext(context.Background()))
	})
}
