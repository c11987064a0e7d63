// Package tenant holds the per-unit-of-work tenant context read by the
// join-table guards, and the error raised when it is missing.
//
// The tenant ID travels in context.Context under the logger package's
// tenant key, so anything logged with logger.L(ctx) is tagged with it:
//
//	ctx = tenant.WithID(ctx, "acme")
//	id, ok := tenant.CurrentID(ctx) // "acme", true
package tenant

import (
	"context"

	"github.com/erp/jointenant/internal/infrastructure/logger"
)

// Provider answers "which tenant is current for this unit of work".
type Provider interface {
	TenantID(ctx context.Context) (string, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, bool)

// TenantID implements Provider.
func (f ProviderFunc) TenantID(ctx context.Context) (string, bool) {
	return f(ctx)
}

// ContextProvider reads the tenant ID stored by WithID.
type ContextProvider struct{}

// TenantID implements Provider.
func (ContextProvider) TenantID(ctx context.Context) (string, bool) {
	return CurrentID(ctx)
}

// WithID returns a context carrying tenantID. The context logger, if any, is
// enriched with a tenant_id field.
func WithID(ctx context.Context, tenantID string) context.Context {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID)
	return ctx
}

// CurrentID returns the tenant ID of ctx. An empty ID counts as unset.
func CurrentID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id := logger.GetTenantID(ctx)
	return id, id != ""
}
