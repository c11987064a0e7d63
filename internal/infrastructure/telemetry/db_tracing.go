// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// jointenant persistence layer.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/jointenant/internal/infrastructure/persistence/tenant"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingPluginName is the name the plugin registers under in gorm.
const DBTracingPluginName = "jointenant:db_tracing"

// Span attribute keys set by the tracing callbacks.
const (
	AttrMissingTenant = attribute.Key("jointenant.missing_tenant")
	AttrJoinTable     = attribute.Key("jointenant.join_table")
	AttrSlowQuery     = attribute.Key("db.slow_query")
	AttrRowsAffected  = attribute.Key("db.rows_affected")
	AttrQueryDuration = attribute.Key("db.query_duration_ms")
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans; never in production
	SlowQueryThresh time.Duration // queries slower than this are flagged
	DBSystem        string
	TracerProvider  trace.TracerProvider // nil uses the global provider
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wraps otelgorm with slow query detection and marks spans
// of join rows rejected for lacking a tenant.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Name implements gorm.Plugin.
func (p *DBTracingPlugin) Name() string {
	return DBTracingPluginName
}

// Initialize implements gorm.Plugin. A disabled plugin registers nothing.
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

type callbackRegister interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerCallbacks adds timing hooks around every operation. The after hook
// runs before otelgorm ends its span.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		callback callbackRegister
		hook     func(*gorm.DB)
		name     string
	}{
		{cb.Create().Before("gorm:create"), markStart, "before_create"},
		{cb.Create().After("gorm:create").Before("otel:after:create"), p.annotate, "after_create"},
		{cb.Query().Before("gorm:query"), markStart, "before_query"},
		{cb.Query().After("gorm:query").Before("otel:after:select"), p.annotate, "after_query"},
		{cb.Update().Before("gorm:update"), markStart, "before_update"},
		{cb.Update().After("gorm:update").Before("otel:after:update"), p.annotate, "after_update"},
		{cb.Delete().Before("gorm:delete"), markStart, "before_delete"},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.annotate, "after_delete"},
		{cb.Row().Before("gorm:row"), markStart, "before_row"},
		{cb.Row().After("gorm:row").Before("otel:after:row"), p.annotate, "after_row"},
		{cb.Raw().Before("gorm:raw"), markStart, "before_raw"},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.annotate, "after_raw"},
	}

	for _, h := range hooks {
		if err := h.callback.Register("otel_timing:"+h.name, h.hook); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

// annotate adds row counts, slow query flags and the missing tenant marker to
// the span in the statement context.
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(AttrRowsAffected.Int64(db.Statement.RowsAffected))
	}

	if errors.Is(db.Error, tenant.ErrMissingTenant) {
		span.SetAttributes(AttrMissingTenant.Bool(true))
		var missing *tenant.MissingTenantError
		if errors.As(db.Error, &missing) {
			span.SetAttributes(AttrJoinTable.String(missing.JoinTable))
		}
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(AttrSlowQuery.Bool(true), AttrQueryDuration.Int64(elapsed.Milliseconds()))
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime returns a context carrying the current time as the query
// start used for slow query detection.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
