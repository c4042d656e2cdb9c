package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Tenant is one workshop account.
type Tenant struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Document          string             `gorm:"column:document;not null;uniqueIndex:idx_tenants_document"`
	DocumentType      enums.DocumentType `gorm:"column:document_type;not null;default:'CNPJ'"`
	Subdomain         string             `gorm:"column:subdomain;not null;uniqueIndex:idx_tenants_subdomain"`
	Name              string             `gorm:"column:name;not null"`
	Plan              enums.Plan         `gorm:"column:plan;not null"`
	Status            enums.TenantStatus `gorm:"column:status;not null;default:'PENDING';index"`
	AdminEmail        *string            `gorm:"column:admin_email"`
	AdminName         *string            `gorm:"column:admin_name"`
	AdminPasswordHash *string            `gorm:"column:admin_password_hash"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
