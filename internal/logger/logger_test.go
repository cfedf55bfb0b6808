package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_TRACING_ENABLED", "true")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "WARN", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.TracingEnabled)
	assert.False(t, cfg.DetailedLogging)
}

func TestOperationTimer_WithoutTracing(t *testing.T) {
	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "text"}))
	assert.True(t, IsDebugEnabled())
	assert.False(t, IsTracingEnabled())

	ctx := context.Background()
	op := StartOperation(ctx, "test.op", "symbol", "SPY", "bars", 10)
	assert.Equal(t, ctx, op.Context())
	op.End("trades", 3)

	failed := StartOperation(ctx, "test.fail")
	failed.EndWithError(errors.New("boom"))
	assert.NoError(t, Shutdown(ctx))
}
