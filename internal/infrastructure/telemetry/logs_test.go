package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEnabledLogsProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "test-service",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })
	return lp
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewLoggerProvider_EnabledWithoutCollector(t *testing.T) {
	lp := newEnabledLogsProvider(t)
	assert.True(t, lp.IsEnabled())
}

func TestNewZapOTELCore(t *testing.T) {
	t.Run("nil provider yields a no-op core", func(t *testing.T) {
		core := NewZapOTELCore("test-service", nil, zapcore.DebugLevel)
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("filters below the configured level", func(t *testing.T) {
		core := NewZapOTELCore("test-service", newEnabledLogsProvider(t), zapcore.WarnLevel)

		_, isFiltered := core.(*levelFilterCore)
		require.True(t, isFiltered)
		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.WarnLevel))
		assert.True(t, core.Enabled(zapcore.ErrorLevel))
	})
}

func TestLevelFilterCore_With(t *testing.T) {
	base, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: base, minLevel: zapcore.WarnLevel}

	child := core.With([]zapcore.Field{zap.String("join_table", "article_tags")})
	logger := zap.New(child)
	logger.Info("dropped")
	logger.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "article_tags", entry.ContextMap()["join_table"])
}

func TestBridge(t *testing.T) {
	t.Run("disabled provider returns the base logger", func(t *testing.T) {
		base := zap.NewNop()
		assert.Same(t, base, Bridge(base, "test-service", nil))
	})

	t.Run("bridged logger still writes to the base core", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		bridged := Bridge(zap.New(core), "test-service", newEnabledLogsProvider(t))

		bridged.Warn("Rejected join row without tenant", zap.String("join_table", "article_tags"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "article_tags", logs.All()[0].ContextMap()["join_table"])
	})
}
