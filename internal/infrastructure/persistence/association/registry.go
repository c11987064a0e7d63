package association

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// CallbackName is the GORM create callback that runs join entity hooks.
const CallbackName = "jointenant:before_create"

// Registry holds the declared relations and their join entities, keyed by
// join table. It is filled during model initialization and only read
// afterwards, so it takes no locks.
//
// Registry is a gorm.Plugin: db.Use(registry) installs the create callback
// that runs the join entity hooks right before gorm:create.
type Registry struct {
	joins     map[string]*JoinEntity
	relations []*Relation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{joins: make(map[string]*JoinEntity)}
}

// Name implements gorm.Plugin.
func (r *Registry) Name() string {
	return "jointenant"
}

// Initialize implements gorm.Plugin.
func (r *Registry) Initialize(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register(CallbackName, r.beforeCreate)
}

// JoinEntity returns the join entity of table, or nil.
func (r *Registry) JoinEntity(table string) *JoinEntity {
	return r.joins[table]
}

// Relations returns the declared relations in declaration order.
func (r *Registry) Relations() []*Relation {
	out := make([]*Relation, len(r.relations))
	copy(out, r.relations)
	return out
}

// joinEntity returns the shared join entity of s.Table. A later schema only
// replaces the recorded one when it has all of its columns, so the reverse
// side's generated join struct never hides the join model's tenant column.
func (r *Registry) joinEntity(s *schema.Schema) *JoinEntity {
	if join, ok := r.joins[s.Table]; ok {
		if join.Schema == nil || hasColumns(s, join.Schema.DBNames) {
			join.Schema = s
		}
		return join
	}
	join := &JoinEntity{Table: s.Table, Schema: s}
	r.joins[s.Table] = join
	return join
}

func (r *Registry) add(rel *Relation) {
	r.relations = append(r.relations, rel)
}

func (r *Registry) beforeCreate(db *gorm.DB) {
	if db.Error != nil {
		return
	}

	join := r.joins[statementTable(db.Statement)]
	if join == nil || join.HookCount() == 0 {
		return
	}

	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	row := &statementRow{stmt: db.Statement, table: join.Table}
	if err := join.RunBeforeCreate(ctx, row); err != nil {
		_ = db.AddError(err)
		return
	}
	if row.err != nil {
		_ = db.AddError(row.err)
	}
}

func hasColumns(s *schema.Schema, columns []string) bool {
	for _, column := range columns {
		if s.LookUpField(column) == nil {
			return false
		}
	}
	return true
}

func statementTable(stmt *gorm.Statement) string {
	if stmt.Table != "" {
		return stmt.Table
	}
	if stmt.Schema != nil {
		return stmt.Schema.Table
	}
	return ""
}

// TenantColumnError is returned when a join row is written through a type
// that has no field for the tenant column, so the tenant cannot be stored.
type TenantColumnError struct {
	JoinTable string
	Column    string
	Model     string // Go type of the row, empty when unknown
}

func (e *TenantColumnError) Error() string {
	model := e.Model
	if model == "" {
		model = "row type"
	}
	return fmt.Sprintf("join table %s: %s has no field for tenant column %s", e.JoinTable, model, e.Column)
}

func (e *TenantColumnError) Unwrap() error {
	return ErrTenantColumnMissing
}

// statementRow writes through GORM's SetColumn, which covers struct, slice
// and map destinations. A struct without the column records a
// TenantColumnError instead of GORM's bare invalid field error.
type statementRow struct {
	stmt  *gorm.Statement
	table string
	err   error
}

func (r *statementRow) SetColumn(name string, value any) {
	switch r.stmt.Dest.(type) {
	case map[string]any, []map[string]any:
		r.stmt.SetColumn(name, value, true)
		return
	}
	if r.stmt.Schema == nil || r.stmt.Schema.LookUpField(name) == nil {
		e := &TenantColumnError{JoinTable: r.table, Column: name}
		if r.stmt.Schema != nil {
			e.Model = r.stmt.Schema.Name
		}
		r.err = e
		return
	}
	r.stmt.SetColumn(name, value, true)
}
