package models

import (
	"time"

	"github.com/google/uuid"
)

// ArticleModel is the persistence model for an article.
type ArticleModel struct {
	BaseModel
	Title      string          `gorm:"type:varchar(200);not null"`
	Body       string          `gorm:"type:text"`
	Tags       []TagModel      `gorm:"many2many:article_tags;joinForeignKey:ArticleID;joinReferences:TagID"`
	Categories []CategoryModel `gorm:"many2many:article_categories;joinForeignKey:ArticleID;joinReferences:CategoryID"`
}

// TableName returns the table name for GORM
func (ArticleModel) TableName() string {
	return "articles"
}

// TagModel is a free-form label shared by all tenants.
type TagModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (TagModel) TableName() string {
	return "tags"
}

// CategoryModel is a global article category.
type CategoryModel struct {
	BaseModel
	Code string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ArticleTagModel is the join row between articles and tags. Each row records
// the tenant that created the link.
type ArticleTagModel struct {
	ArticleID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantRefModel
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ArticleTagModel) TableName() string {
	return "article_tags"
}

// ArticleCategoryModel is the join row between articles and categories.
type ArticleCategoryModel struct {
	ArticleID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName returns the table name for GORM
func (ArticleCategoryModel) TableName() string {
	return "article_categories"
}
