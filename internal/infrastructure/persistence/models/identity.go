package models

import (
	"time"

	"github.com/google/uuid"
)

// UserModel is the persistence model for a user.
type UserModel struct {
	BaseModel
	Username    string      `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email       string      `gorm:"type:varchar(200)"`
	DisplayName string      `gorm:"type:varchar(200)"`
	Roles       []RoleModel `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// RoleModel is the persistence model for a role.
type RoleModel struct {
	BaseModel
	Code        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// UserRoleModel is the persistence model for the UserRole relationship. Grants
// are partitioned by account.
type UserRoleModel struct {
	UserID    uuid.UUID     `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID     `gorm:"type:uuid;primaryKey"`
	AccountID string        `gorm:"type:varchar(64);not null;index"`
	Account   *AccountModel `gorm:"foreignKey:AccountID;references:ID"`
	CreatedAt time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserRoleModel) TableName() string {
	return "user_roles"
}
