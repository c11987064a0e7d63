package models

import (
	"fmt"

	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"gorm.io/gorm"
)

// Tenant entity type names, as used in tenant_class_name.
const (
	TenantClass  = "Tenant"
	AccountClass = "Account"
)

// Associations are the declared many-to-many relations of the models.
type Associations struct {
	ArticleTags       *association.Relation
	ArticleCategories *association.Relation
	UserRoles         *association.Relation
}

// TenantTypes registers the tenant entity types with an Augmentor.
func TenantTypes() []association.AugmentorOption {
	return []association.AugmentorOption{
		association.WithTenantType(TenantClass, &TenantModel{}),
		association.WithTenantType(AccountClass, &AccountModel{}),
	}
}

// DeclareAssociations declares every many-to-many relation once. It must run
// before AutoMigrate so join tables are created from their join models.
func DeclareAssociations(aug *association.Augmentor) (*Associations, error) {
	var (
		a   Associations
		err error
	)

	a.ArticleTags, err = aug.HasAndBelongsToMany(&ArticleModel{}, "tags", byTagName, association.Options{
		association.OptionJoinModel:     &ArticleTagModel{},
		association.OptionTenantEnabled: true,
		association.OptionTenantColumn:  "tenant_id",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare article tags: %w", err)
	}

	a.ArticleCategories, err = aug.HasAndBelongsToMany(&ArticleModel{}, "categories", nil, association.Options{
		association.OptionJoinModel: &ArticleCategoryModel{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare article categories: %w", err)
	}

	a.UserRoles, err = aug.HasAndBelongsToMany(&UserModel{}, "roles", nil, association.Options{
		association.OptionJoinModel:       &UserRoleModel{},
		association.OptionTenantEnabled:   true,
		association.OptionTenantColumn:    "account_id",
		association.OptionTenantClassName: AccountClass,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare user roles: %w", err)
	}

	return &a, nil
}

func byTagName(db *gorm.DB) *gorm.DB {
	return db.Order("tags.name ASC")
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&TenantModel{},
		&AccountModel{},
		&TagModel{},
		&CategoryModel{},
		&RoleModel{},
		&ArticleModel{},
		&UserModel{},
	}
}
