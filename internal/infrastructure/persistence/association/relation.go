package association

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Scope narrows the associated records of a relation when they are read.
type Scope func(db *gorm.DB) *gorm.DB

// Row is a join row about to be persisted.
type Row interface {
	SetColumn(name string, value any)
}

// MapRow is a Row backed by a column map.
type MapRow map[string]any

// SetColumn implements Row.
func (r MapRow) SetColumn(name string, value any) {
	r[name] = value
}

// BeforeCreateHook runs synchronously before a join row is handed to storage.
// A non-nil error aborts the write.
type BeforeCreateHook func(ctx context.Context, row Row) error

// TenantReference describes the tenant reference field of a join entity.
type TenantReference struct {
	Name      string // reference field, e.g. "account"
	Column    string // foreign key column, e.g. "account_id"
	ClassName string // tenant entity type, e.g. "Account"
}

// JoinEntity is the entity type behind a many-to-many join table. Tenant-scoped
// relations extend it with a tenant reference and a before-create hook; it is
// never changed after declarations are done.
type JoinEntity struct {
	Table  string
	Schema *schema.Schema

	tenant       *TenantReference
	beforeCreate []BeforeCreateHook
}

// Tenant returns the tenant reference, or nil for an unscoped join entity.
func (j *JoinEntity) Tenant() *TenantReference {
	return j.tenant
}

// HookCount returns how many before-create hooks are registered.
func (j *JoinEntity) HookCount() int {
	return len(j.beforeCreate)
}

// SetTenantReference adds the tenant reference field to the join entity.
func (j *JoinEntity) SetTenantReference(ref TenantReference) {
	j.tenant = &ref
}

// BeforeCreate registers hook to run before every insert into the join table.
func (j *JoinEntity) BeforeCreate(hook BeforeCreateHook) {
	j.beforeCreate = append(j.beforeCreate, hook)
}

// RunBeforeCreate runs the registered hooks in order and stops at the first error.
func (j *JoinEntity) RunBeforeCreate(ctx context.Context, row Row) error {
	for _, hook := range j.beforeCreate {
		if err := hook(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// HasColumn reports whether the join entity declares column.
func (j *JoinEntity) HasColumn(column string) bool {
	if j.Schema == nil {
		return false
	}
	return j.Schema.LookUpField(column) != nil
}

// Relation is a declared many-to-many relationship.
type Relation struct {
	Name       string // Go field name on the owning model
	Model      *schema.Schema
	Associated *schema.Schema
	Join       *JoinEntity
	Scope      Scope
	Options    Options // the bag the Declarer received
}

// TenantScoped reports whether writes to the relation's join table are guarded.
func (r *Relation) TenantScoped() bool {
	return r.Join != nil && r.Join.Tenant() != nil
}

func (r *Relation) association(ctx context.Context, db *gorm.DB, owner any) *gorm.Association {
	return db.WithContext(ctx).Model(owner).Association(r.Name)
}

// Append links owner to targets, creating the join rows.
func (r *Relation) Append(ctx context.Context, db *gorm.DB, owner any, targets ...any) error {
	return r.association(ctx, db, owner).Append(targets...)
}

// Replace swaps the linked records of owner for targets.
func (r *Relation) Replace(ctx context.Context, db *gorm.DB, owner any, targets ...any) error {
	return r.association(ctx, db, owner).Replace(targets...)
}

// Delete removes the join rows between owner and targets.
func (r *Relation) Delete(ctx context.Context, db *gorm.DB, owner any, targets ...any) error {
	return r.association(ctx, db, owner).Delete(targets...)
}

// Find loads the records linked to owner into dest, narrowed by the relation scope.
func (r *Relation) Find(ctx context.Context, db *gorm.DB, owner any, dest any) error {
	tx := db.WithContext(ctx).Model(owner)
	if r.Scope != nil {
		tx = r.Scope(tx)
	}
	return tx.Association(r.Name).Find(dest)
}

// Count returns the number of records linked to owner.
func (r *Relation) Count(ctx context.Context, db *gorm.DB, owner any) (int64, error) {
	tx := db.WithContext(ctx).Model(owner)
	if r.Scope != nil {
		tx = r.Scope(tx)
	}
	assoc := tx.Association(r.Name)
	count := assoc.Count()
	return count, assoc.Error
}
