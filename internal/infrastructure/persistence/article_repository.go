package persistence

import (
	"context"
	"fmt"

	"github.com/erp/jointenant/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormArticleRepository stores articles and their tag and category links.
// Tag links are tenant-scoped: adding one without a tenant in ctx fails with
// *tenant.MissingTenantError.
type GormArticleRepository struct {
	db        *gorm.DB
	relations *models.Associations
}

// NewGormArticleRepository creates a new GormArticleRepository
func NewGormArticleRepository(db *gorm.DB, relations *models.Associations) *GormArticleRepository {
	return &GormArticleRepository{db: db, relations: relations}
}

// WithTx returns a repository bound to tx.
func (r *GormArticleRepository) WithTx(tx *gorm.DB) *GormArticleRepository {
	return &GormArticleRepository{db: tx, relations: r.relations}
}

// Create creates a new article together with any tags and categories it holds.
func (r *GormArticleRepository) Create(ctx context.Context, article *models.ArticleModel) error {
	return r.db.WithContext(ctx).Create(article).Error
}

// FindByID finds an article by ID
func (r *GormArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ArticleModel, error) {
	var article models.ArticleModel
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &article, nil
}

// AddTags links the article to the named tags, creating missing tags.
func (r *GormArticleRepository) AddTags(ctx context.Context, articleID uuid.UUID, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		article, err := r.WithTx(tx).FindByID(ctx, articleID)
		if err != nil {
			return err
		}

		tags := make([]any, 0, len(names))
		for _, name := range names {
			tag := &models.TagModel{}
			if err := tx.Where(models.TagModel{Name: name}).FirstOrCreate(tag).Error; err != nil {
				return fmt.Errorf("failed to resolve tag %q: %w", name, err)
			}
			tags = append(tags, tag)
		}
		return r.relations.ArticleTags.Append(ctx, tx, article, tags...)
	})
}

// RemoveTag unlinks a tag from the article. The tag itself is kept.
func (r *GormArticleRepository) RemoveTag(ctx context.Context, articleID, tagID uuid.UUID) error {
	article, err := r.FindByID(ctx, articleID)
	if err != nil {
		return err
	}
	return r.relations.ArticleTags.Delete(ctx, r.db, article, &models.TagModel{BaseModel: models.BaseModel{ID: tagID}})
}

// ListTags returns the tags of the article, ordered by name.
func (r *GormArticleRepository) ListTags(ctx context.Context, articleID uuid.UUID) ([]models.TagModel, error) {
	article, err := r.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	var tags []models.TagModel
	if err := r.relations.ArticleTags.Find(ctx, r.db, article, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// SetCategories replaces the categories of the article.
func (r *GormArticleRepository) SetCategories(ctx context.Context, articleID uuid.UUID, categoryIDs ...uuid.UUID) error {
	article, err := r.FindByID(ctx, articleID)
	if err != nil {
		return err
	}

	if len(categoryIDs) == 0 {
		return r.relations.ArticleCategories.Replace(ctx, r.db, article)
	}

	var categories []models.CategoryModel
	if err := r.db.WithContext(ctx).Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
		return err
	}
	if len(categories) != len(categoryIDs) {
		return fmt.Errorf("category: %w", ErrNotFound)
	}
	return r.relations.ArticleCategories.Replace(ctx, r.db, article, &categories)
}

// ListCategories returns the categories of the article.
func (r *GormArticleRepository) ListCategories(ctx context.Context, articleID uuid.UUID) ([]models.CategoryModel, error) {
	article, err := r.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	var categories []models.CategoryModel
	if err := r.relations.ArticleCategories.Find(ctx, r.db, article, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
