package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/jointenant/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetup_Disabled(t *testing.T) {
	log := zap.NewNop()

	p, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:     false,
		ServiceName: "jointenant",
	}, log)
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.Same(t, log, p.Logger)
	assert.NotNil(t, p.GuardMeter())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDBTracing(t *testing.T) {
	cfg := config.TelemetryConfig{
		Enabled:           true,
		DBTraceEnabled:    true,
		DBLogFullSQL:      true,
		DBSlowQueryThresh: 50 * time.Millisecond,
	}

	got := DBTracing(cfg, "postgresql")
	assert.Equal(t, DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: 50 * time.Millisecond,
		DBSystem:        "postgresql",
	}, got)

	cfg.Enabled = false
	assert.False(t, DBTracing(cfg, "postgresql").Enabled, "db tracing follows the telemetry switch")
}
