package telemetry

import (
	"context"
	"errors"

	"github.com/erp/jointenant/internal/infrastructure/config"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Providers bundles the trace, metric and log pipelines started by Setup.
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
	// Logger is the application logger, bridged to OTEL logs when enabled.
	Logger *zap.Logger
}

// Setup starts every pipeline configured in cfg. A disabled configuration
// yields no-op providers and returns log unchanged.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*Providers, error) {
	base := Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}

	tp, err := NewTracerProvider(ctx, base, log)
	if err != nil {
		return nil, err
	}

	mp, err := NewMeterProvider(ctx, MetricsConfig{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    cfg.MetricsInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, log)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           cfg.Enabled && cfg.LogsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, log)
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	return &Providers{
		Tracer: tp,
		Meter:  mp,
		Logs:   lp,
		Logger: Bridge(log, cfg.ServiceName, lp),
	}, nil
}

// GuardMeter returns the meter the join tenant guard records on.
func (p *Providers) GuardMeter() metric.Meter {
	return p.Meter.Meter("github.com/erp/jointenant")
}

// DBTracing derives the database tracing settings from cfg.
func DBTracing(cfg config.TelemetryConfig, dbSystem string) DBTracingConfig {
	return DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}
}

// Shutdown stops the pipelines in reverse start order.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Logs.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
	)
}
