package models

import (
	"context"
	"testing"

	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"github.com/erp/jointenant/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Associations) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	registry := association.NewRegistry()
	require.NoError(t, db.Use(registry))

	aug := association.NewAugmentor(association.NewGormDeclarer(db, registry), TenantTypes()...)
	assocs, err := DeclareAssociations(aug)
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(All()...))
	return db, assocs
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "tenants", TenantModel{}.TableName())
	assert.Equal(t, "accounts", AccountModel{}.TableName())
	assert.Equal(t, "articles", ArticleModel{}.TableName())
	assert.Equal(t, "tags", TagModel{}.TableName())
	assert.Equal(t, "categories", CategoryModel{}.TableName())
	assert.Equal(t, "article_tags", ArticleTagModel{}.TableName())
	assert.Equal(t, "article_categories", ArticleCategoryModel{}.TableName())
	assert.Equal(t, "users", UserModel{}.TableName())
	assert.Equal(t, "roles", RoleModel{}.TableName())
	assert.Equal(t, "user_roles", UserRoleModel{}.TableName())
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	m := &BaseModel{}
	require.NoError(t, m.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, m.ID)

	id := uuid.New()
	m = &BaseModel{ID: id}
	require.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, id, m.ID)
}

func TestDeclareAssociations(t *testing.T) {
	db, assocs := setupTestDB(t)

	t.Run("article tags are tenant-scoped", func(t *testing.T) {
		ref := assocs.ArticleTags.Join.Tenant()
		require.NotNil(t, ref)
		assert.Equal(t, association.TenantReference{Name: "tenant", Column: "tenant_id", ClassName: TenantClass}, *ref)
		assert.Equal(t, 1, assocs.ArticleTags.Join.HookCount())
	})

	t.Run("user roles are account-scoped", func(t *testing.T) {
		ref := assocs.UserRoles.Join.Tenant()
		require.NotNil(t, ref)
		assert.Equal(t, association.TenantReference{Name: "account", Column: "account_id", ClassName: AccountClass}, *ref)
	})

	t.Run("article categories are shared", func(t *testing.T) {
		assert.False(t, assocs.ArticleCategories.TenantScoped())
	})

	t.Run("join tables carry their tenant columns", func(t *testing.T) {
		assert.True(t, db.Migrator().HasColumn(&ArticleTagModel{}, "tenant_id"))
		assert.True(t, db.Migrator().HasColumn(&UserRoleModel{}, "account_id"))
		assert.False(t, db.Migrator().HasColumn(&ArticleCategoryModel{}, "tenant_id"))
	})
}

func TestArticleTags_StampedWithTenant(t *testing.T) {
	db, _ := setupTestDB(t)
	require.NoError(t, db.Create(&TenantModel{ID: "acme", Name: "Acme"}).Error)

	ctx := tenant.WithID(context.Background(), "acme")
	article := &ArticleModel{Title: "Hello", Tags: []TagModel{{Name: "go"}}}
	require.NoError(t, db.WithContext(ctx).Create(article).Error)

	var rows []ArticleTagModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, article.ID, rows[0].ArticleID)
	assert.Equal(t, "acme", rows[0].TenantID)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestUserRoles_StampedWithAccount(t *testing.T) {
	db, _ := setupTestDB(t)
	require.NoError(t, db.Create(&AccountModel{ID: "acct-1", Name: "First"}).Error)

	user := &UserModel{Username: "ada", Roles: []RoleModel{{Code: "admin", Name: "Admin"}}}

	err := db.Create(user).Error
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)

	ctx := tenant.WithID(context.Background(), "acct-1")
	require.NoError(t, db.WithContext(ctx).Create(user).Error)

	var rows []UserRoleModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "acct-1", rows[0].AccountID)
}
