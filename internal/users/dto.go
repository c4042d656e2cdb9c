package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	TenantID     uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         enums.UserRole
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleMember
	}
	return &models.User{
		TenantID:     c.TenantID,
		Email:        NormalizeEmail(c.Email),
		Name:         strings.TrimSpace(c.Name),
		PasswordHash: c.PasswordHash,
		Role:         role,
		IsActive:     true,
	}
}

// NormalizeEmail lowercases and trims an address before lookups and writes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
