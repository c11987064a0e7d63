package association

import (
	"context"

	"github.com/erp/jointenant/internal/infrastructure/logger"
	"github.com/erp/jointenant/internal/infrastructure/persistence/tenant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Guard outcomes, used as span event and metric attributes.
const (
	OutcomePopulated = "populated"
	OutcomeRejected  = "rejected"
)

// JoinCreationGuard fills the tenant reference of a join row from the tenant
// context, or refuses the row when there is none. It keeps no state between
// calls and is safe for concurrent use.
type JoinCreationGuard struct {
	Relation  string
	JoinTable string
	Reference TenantReference
	Provider  tenant.Provider

	logger  *zap.Logger
	metrics *guardMetrics
}

// BeforeCreate is the BeforeCreateHook of the guard. Any tenant ID already on
// the row is overwritten.
func (g *JoinCreationGuard) BeforeCreate(ctx context.Context, row Row) error {
	provider := g.Provider
	if provider == nil {
		provider = tenant.ContextProvider{}
	}

	tenantID, ok := provider.TenantID(ctx)
	if !ok || tenantID == "" {
		g.record(ctx, OutcomeRejected)
		logger.WithLogger(ctx, g.logger).Warn("Rejected join row without tenant",
			zap.String("relation", g.Relation),
			zap.String("join_table", g.JoinTable),
			zap.String("tenant_column", g.Reference.Column),
		)
		return &tenant.MissingTenantError{Relation: g.Relation, JoinTable: g.JoinTable}
	}

	row.SetColumn(g.Reference.Column, tenantID)
	g.record(ctx, OutcomePopulated)
	return nil
}

func (g *JoinCreationGuard) record(ctx context.Context, outcome string) {
	attrs := []attribute.KeyValue{
		attribute.String("join_table", g.JoinTable),
		attribute.String("outcome", outcome),
	}
	trace.SpanFromContext(ctx).AddEvent("jointenant.guard", trace.WithAttributes(attrs...))
	if g.metrics != nil {
		g.metrics.evaluated(ctx, attrs...)
	}
}
