package persistence

import (
	"context"
	"testing"

	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"github.com/erp/jointenant/internal/infrastructure/persistence/models"
	"github.com/erp/jointenant/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRepositoryTestDB creates an in-memory SQLite database with the models
// migrated and their associations declared.
func setupRepositoryTestDB(t *testing.T) (*gorm.DB, *models.Associations) {
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
	assocs, err := models.DeclareAssociations(
		association.NewAugmentor(association.NewGormDeclarer(db, registry), models.TenantTypes()...),
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	require.NoError(t, db.Create(&models.TenantModel{ID: "acme", Name: "Acme"}).Error)
	require.NoError(t, db.Create(&models.AccountModel{ID: "acct-1", Name: "First"}).Error)
	return db, assocs
}

func TestGormArticleRepository_AddTags(t *testing.T) {
	t.Run("links tags for the current tenant", func(t *testing.T) {
		db, assocs := setupRepositoryTestDB(t)
		repo := NewGormArticleRepository(db, assocs)
		ctx := tenant.WithID(context.Background(), "acme")

		article := &models.ArticleModel{Title: "Hello"}
		require.NoError(t, repo.Create(ctx, article))
		require.NoError(t, repo.AddTags(ctx, article.ID, "zeta", "alpha"))

		tags, err := repo.ListTags(ctx, article.ID)
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, "alpha", tags[0].Name)
		assert.Equal(t, "zeta", tags[1].Name)

		var rows []models.ArticleTagModel
		require.NoError(t, db.Find(&rows).Error)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, "acme", row.TenantID)
		}
	})

	t.Run("fails without a tenant and writes nothing", func(t *testing.T) {
		db, assocs := setupRepositoryTestDB(t)
		repo := NewGormArticleRepository(db, assocs)
		ctx := context.Background()

		article := &models.ArticleModel{Title: "Hello"}
		require.NoError(t, repo.Create(ctx, article))

		err := repo.AddTags(ctx, article.ID, "go")
		var missing *tenant.MissingTenantError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "article_tags", missing.JoinTable)

		var links, tags int64
		require.NoError(t, db.Model(&models.ArticleTagModel{}).Count(&links).Error)
		require.NoError(t, db.Model(&models.TagModel{}).Count(&tags).Error)
		assert.Zero(t, links)
		assert.Zero(t, tags, "tag creation rolls back with the link")
	})

	t.Run("unknown article", func(t *testing.T) {
		db, assocs := setupRepositoryTestDB(t)
		repo := NewGormArticleRepository(db, assocs)

		err := repo.AddTags(tenant.WithID(context.Background(), "acme"), uuid.New(), "go")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reuses existing tags", func(t *testing.T) {
		db, assocs := setupRepositoryTestDB(t)
		repo := NewGormArticleRepository(db, assocs)
		ctx := tenant.WithID(context.Background(), "acme")

		first := &models.ArticleModel{Title: "One"}
		second := &models.ArticleModel{Title: "Two"}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))
		require.NoError(t, repo.AddTags(ctx, first.ID, "go"))
		require.NoError(t, repo.AddTags(ctx, second.ID, "go"))

		var tags int64
		require.NoError(t, db.Model(&models.TagModel{}).Count(&tags).Error)
		assert.Equal(t, int64(1), tags)
	})
}

func TestGormArticleRepository_RemoveTag(t *testing.T) {
	db, assocs := setupRepositoryTestDB(t)
	repo := NewGormArticleRepository(db, assocs)
	ctx := tenant.WithID(context.Background(), "acme")

	article := &models.ArticleModel{Title: "Hello"}
	require.NoError(t, repo.Create(ctx, article))
	require.NoError(t, repo.AddTags(ctx, article.ID, "go", "sql"))

	tags, err := repo.ListTags(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)

	require.NoError(t, repo.RemoveTag(ctx, article.ID, tags[0].ID))

	tags, err = repo.ListTags(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "sql", tags[0].Name)
}

func TestGormArticleRepository_Categories(t *testing.T) {
	db, assocs := setupRepositoryTestDB(t)
	repo := NewGormArticleRepository(db, assocs)
	// Categories are shared; no tenant needed.
	ctx := context.Background()

	news := &models.CategoryModel{Code: "news", Name: "News"}
	tech := &models.CategoryModel{Code: "tech", Name: "Tech"}
	require.NoError(t, db.Create(news).Error)
	require.NoError(t, db.Create(tech).Error)

	article := &models.ArticleModel{Title: "Hello"}
	require.NoError(t, repo.Create(ctx, article))

	require.NoError(t, repo.SetCategories(ctx, article.ID, news.ID, tech.ID))
	categories, err := repo.ListCategories(ctx, article.ID)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	require.NoError(t, repo.SetCategories(ctx, article.ID, tech.ID))
	categories, err = repo.ListCategories(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "tech", categories[0].Code)

	require.NoError(t, repo.SetCategories(ctx, article.ID))
	categories, err = repo.ListCategories(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, categories)

	assert.ErrorIs(t, repo.SetCategories(ctx, article.ID, uuid.New()), ErrNotFound)
}

func TestGormArticleRepository_CreateWithTags(t *testing.T) {
	db, assocs := setupRepositoryTestDB(t)
	repo := NewGormArticleRepository(db, assocs)

	article := &models.ArticleModel{Title: "Hello", Tags: []models.TagModel{{Name: "go"}}}
	err := repo.Create(context.Background(), article)
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)

	var articles int64
	require.NoError(t, db.Model(&models.ArticleModel{}).Count(&articles).Error)
	assert.Zero(t, articles)
}

func TestGormUserRepository_Roles(t *testing.T) {
	db, assocs := setupRepositoryTestDB(t)
	repo := NewGormUserRepository(db, assocs)
	ctx := tenant.WithID(context.Background(), "acct-1")

	require.NoError(t, db.Create(&[]models.RoleModel{
		{Code: "admin", Name: "Admin"},
		{Code: "viewer", Name: "Viewer"},
	}).Error)

	user := &models.UserModel{Username: "ada"}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	t.Run("assign without account fails", func(t *testing.T) {
		err := repo.AssignRoles(context.Background(), user.ID, "admin")
		assert.ErrorIs(t, err, tenant.ErrMissingTenant)

		n, err := repo.CountRoles(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("assign stores the account", func(t *testing.T) {
		require.NoError(t, repo.AssignRoles(ctx, user.ID, "admin", "viewer"))

		n, err := repo.CountRoles(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		var grants []models.UserRoleModel
		require.NoError(t, db.Where("user_id = ?", user.ID).Find(&grants).Error)
		require.Len(t, grants, 2)
		for _, g := range grants {
			assert.Equal(t, "acct-1", g.AccountID)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		assert.ErrorIs(t, repo.AssignRoles(ctx, user.ID, "owner"), ErrNotFound)
	})

	t.Run("revoke", func(t *testing.T) {
		roles, err := repo.ListRoles(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 2)

		require.NoError(t, repo.RevokeRole(ctx, user.ID, roles[0].ID))
		n, err := repo.CountRoles(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.ListRoles(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
