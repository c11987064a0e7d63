package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides common persistence fields for entity models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a new ID when none is set.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TenantRefModel is embedded by join models whose rows belong to a tenant.
type TenantRefModel struct {
	TenantID string       `gorm:"type:varchar(64);not null;index"`
	Tenant   *TenantModel `gorm:"foreignKey:TenantID;references:ID"`
}
