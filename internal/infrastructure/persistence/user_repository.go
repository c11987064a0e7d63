package persistence

import (
	"context"
	"fmt"

	"github.com/erp/jointenant/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository stores users and their role grants. Grants are
// partitioned by account: the tenant ID of ctx is stored as the account_id
// of each user_roles row.
type GormUserRepository struct {
	db        *gorm.DB
	relations *models.Associations
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB, relations *models.Associations) *GormUserRepository {
	return &GormUserRepository{db: db, relations: relations}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.UserModel) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.UserModel, error) {
	var user models.UserModel
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	var user models.UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// AssignRoles grants the roles with the given codes to the user.
func (r *GormUserRepository) AssignRoles(ctx context.Context, userID uuid.UUID, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	var roles []models.RoleModel
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&roles).Error; err != nil {
		return err
	}
	if len(roles) != len(codes) {
		return fmt.Errorf("role: %w", ErrNotFound)
	}
	return r.relations.UserRoles.Append(ctx, r.db, user, &roles)
}

// RevokeRole removes a role grant from the user.
func (r *GormUserRepository) RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return r.relations.UserRoles.Delete(ctx, r.db, user, &models.RoleModel{BaseModel: models.BaseModel{ID: roleID}})
}

// ListRoles returns the roles granted to the user.
func (r *GormUserRepository) ListRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleModel, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var roles []models.RoleModel
	if err := r.relations.UserRoles.Find(ctx, r.db, user, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// CountRoles counts the roles granted to the user.
func (r *GormUserRepository) CountRoles(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return r.relations.UserRoles.Count(ctx, r.db, user)
}
