package association

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/erp/jointenant/internal/infrastructure/persistence/tenant"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm/schema"
)

var (
	// ErrTenantColumnMissing is returned when the join model has no field for tenant_column.
	ErrTenantColumnMissing = errors.New("join model does not declare the tenant column")
)

// DefaultTenantClassName is the tenant type used when none is given or inferred.
const DefaultTenantClassName = "Tenant"

// Augmentor wraps a Declarer and adds tenant enforcement to the join tables
// of relations declared with tenant_enabled.
type Augmentor struct {
	declarer       Declarer
	provider       tenant.Provider
	logger         *zap.Logger
	meter          metric.Meter
	metrics        *guardMetrics
	tenantTypes    map[string]reflect.Type
	defaultTenant  string
	warnOnFallback bool
}

// AugmentorOption configures an Augmentor.
type AugmentorOption func(*Augmentor)

// WithProvider sets where guards read the current tenant from.
func WithProvider(p tenant.Provider) AugmentorOption {
	return func(a *Augmentor) {
		a.provider = p
	}
}

// WithLogger sets the logger for declaration diagnostics and guard rejections.
func WithLogger(l *zap.Logger) AugmentorOption {
	return func(a *Augmentor) {
		a.logger = l
	}
}

// WithMeter sets the meter guard counters are created on.
func WithMeter(m metric.Meter) AugmentorOption {
	return func(a *Augmentor) {
		a.meter = m
	}
}

// WithTenantType registers model as the tenant entity type called name.
func WithTenantType(name string, model any) AugmentorOption {
	return func(a *Augmentor) {
		a.tenantTypes[name] = indirectType(model)
	}
}

// WithDefaultTenantType names the tenant type used when a declaration has no
// tenant_class_name and none can be inferred.
func WithDefaultTenantType(name string) AugmentorOption {
	return func(a *Augmentor) {
		if name != "" {
			a.defaultTenant = name
		}
	}
}

// WithColumnFallbackWarning toggles the warning logged when tenant_column
// does not match <name>_id.
func WithColumnFallbackWarning(enabled bool) AugmentorOption {
	return func(a *Augmentor) {
		a.warnOnFallback = enabled
	}
}

// NewAugmentor creates an Augmentor over declarer.
func NewAugmentor(declarer Declarer, opts ...AugmentorOption) *Augmentor {
	a := &Augmentor{
		declarer:       declarer,
		provider:       tenant.ContextProvider{},
		logger:         zap.NewNop(),
		tenantTypes:    make(map[string]reflect.Type),
		defaultTenant:  DefaultTenantClassName,
		warnOnFallback: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics = newGuardMetrics(a.meter)
	return a
}

// HasAndBelongsToMany declares a many-to-many relation. The tenant options are
// stripped before the Declarer sees the bag. When tenant_enabled is true the
// relation's join entity gains a tenant reference and a JoinCreationGuard.
//
// Declaring the same tenant-scoped relation twice registers the guard twice.
func (a *Augmentor) HasAndBelongsToMany(model any, name string, scope Scope, opts Options) (*Relation, error) {
	tenantOpts, rest, err := SplitTenantOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", name, err)
	}

	rel, err := a.declarer.Declare(model, name, scope, rest)
	if err != nil {
		return nil, err
	}
	if !tenantOpts.Enabled {
		a.logger.Debug("Declared relation",
			zap.String("relation", rel.Name),
			zap.String("join_table", rel.Join.Table),
		)
		return rel, nil
	}

	if err := a.augment(rel, tenantOpts); err != nil {
		return nil, fmt.Errorf("relation %s: %w", rel.Name, err)
	}
	return rel, nil
}

func (a *Augmentor) augment(rel *Relation, opts TenantOptions) error {
	join := rel.Join

	fieldName, matched := TenantFieldName(opts.Column)
	if !matched && a.warnOnFallback {
		a.logger.Warn("tenant_column does not match <name>_id, using fallback reference name",
			zap.String("relation", rel.Name),
			zap.String("tenant_column", opts.Column),
			zap.String("reference", fieldName),
		)
	}

	if join.Schema != nil && !join.HasColumn(opts.Column) {
		return fmt.Errorf("%w: %s has no %s", ErrTenantColumnMissing, join.Table, opts.Column)
	}

	class, typ, registered := a.resolveTenantType(opts.ClassName, fieldName)
	if !registered {
		a.logger.Warn("tenant_class_name is not a registered tenant type",
			zap.String("relation", rel.Name),
			zap.String("tenant_class", class),
		)
	}
	if got := referenceType(join.Schema, fieldName); got != nil && typ != nil && got != typ {
		a.logger.Warn("Tenant reference field points at another type",
			zap.String("relation", rel.Name),
			zap.String("join_table", join.Table),
			zap.String("reference", fieldName),
			zap.Stringer("field_type", got),
			zap.Stringer("tenant_type", typ),
		)
	}

	ref := TenantReference{Name: fieldName, Column: opts.Column, ClassName: class}
	join.SetTenantReference(ref)

	guard := &JoinCreationGuard{
		Relation:  rel.Name,
		JoinTable: join.Table,
		Reference: ref,
		Provider:  a.provider,
		logger:    a.logger,
		metrics:   a.metrics,
	}
	join.BeforeCreate(guard.BeforeCreate)

	a.logger.Debug("Declared tenant-scoped relation",
		zap.String("relation", rel.Name),
		zap.String("join_table", join.Table),
		zap.String("tenant_column", ref.Column),
		zap.String("tenant_class", ref.ClassName),
		zap.Int("hooks", join.HookCount()),
	)
	return nil
}

// resolveTenantType picks the tenant type: the explicit class name, else the
// class inferred from the reference name when registered, else the default.
// An explicit class that was never registered is still used, with a nil type.
func (a *Augmentor) resolveTenantType(explicit, fieldName string) (string, reflect.Type, bool) {
	if explicit != "" {
		typ, ok := a.tenantTypes[explicit]
		return explicit, typ, ok
	}
	if inferred := className(fieldName); inferred != "" {
		if typ, ok := a.tenantTypes[inferred]; ok {
			return inferred, typ, true
		}
	}
	return a.defaultTenant, a.tenantTypes[a.defaultTenant], true
}

// referenceType returns the model type of the join model's belongs-to field
// for the reference, or nil when it has none.
func referenceType(join *schema.Schema, fieldName string) reflect.Type {
	if join == nil {
		return nil
	}
	ref, ok := join.Relationships.Relations[camelName(fieldName)]
	if !ok || ref.FieldSchema == nil {
		return nil
	}
	return ref.FieldSchema.ModelType
}

func indirectType(model any) reflect.Type {
	t := reflect.TypeOf(model)
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	return t
}
