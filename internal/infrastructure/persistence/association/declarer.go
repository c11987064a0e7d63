package association

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrRelationNotFound is returned when a model has no many-to-many field of the given name.
var ErrRelationNotFound = errors.New("many-to-many relation not found")

// Declarer is the plain relationship declaration mechanism. It knows nothing
// about tenants.
type Declarer interface {
	Declare(model any, name string, scope Scope, opts Options) (*Relation, error)
}

// GormDeclarer declares many-to-many relations from GORM `many2many` struct
// tags, binding an optional join model through SetupJoinTable.
type GormDeclarer struct {
	db       *gorm.DB
	registry *Registry
}

// NewGormDeclarer creates a declarer recording its relations in registry.
func NewGormDeclarer(db *gorm.DB, registry *Registry) *GormDeclarer {
	return &GormDeclarer{db: db, registry: registry}
}

// Declare resolves the many2many field name (Go name or snake_case) on model.
// The only option it accepts is join_model.
func (d *GormDeclarer) Declare(model any, name string, scope Scope, opts Options) (*Relation, error) {
	if err := checkDeclarerOptions(opts); err != nil {
		return nil, err
	}

	modelSchema, err := d.parse(model)
	if err != nil {
		return nil, err
	}

	field, rel := lookupMany2Many(modelSchema, name)
	if rel == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrRelationNotFound, modelSchema.Name, name)
	}

	if joinModel := opts[OptionJoinModel]; joinModel != nil {
		if err := d.db.SetupJoinTable(model, field, joinModel); err != nil {
			return nil, fmt.Errorf("failed to set up join table for %s.%s: %w", modelSchema.Name, field, err)
		}
		rel = modelSchema.Relationships.Relations[field]
	}

	relation := &Relation{
		Name:       field,
		Model:      modelSchema,
		Associated: rel.FieldSchema,
		Join:       d.registry.joinEntity(rel.JoinTable),
		Scope:      scope,
		Options:    opts,
	}
	d.registry.add(relation)
	return relation, nil
}

func (d *GormDeclarer) parse(model any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: d.db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}
	return stmt.Schema, nil
}

func checkDeclarerOptions(opts Options) error {
	var unknown []string
	for key := range opts {
		if key != OptionJoinModel {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %v", ErrUnknownOption, unknown)
}

func lookupMany2Many(s *schema.Schema, name string) (string, *schema.Relationship) {
	for _, candidate := range []string{name, camelName(name)} {
		if rel, ok := s.Relationships.Relations[candidate]; ok && rel.Type == schema.Many2Many && rel.JoinTable != nil {
			return candidate, rel
		}
	}
	return "", nil
}
