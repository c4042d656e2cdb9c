package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// User is a login scoped to one tenant.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_users_tenant_email,priority:1"`
	Email        string         `gorm:"column:email;not null;uniqueIndex:idx_users_tenant_email,priority:2;index"`
	Name         string         `gorm:"column:name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;not null;default:'MEMBER'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
