package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/repo"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repo bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: r.Bind(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindAdminByTenant returns the tenant's ADMIN user or gorm.ErrRecordNotFound.
func (r *Repository) FindAdminByTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).
		Where("tenant_id = ? AND role = ?", tenantID, enums.UserRoleAdmin).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindFirstByTenant returns the oldest user of the tenant, whatever its role.
func (r *Repository) FindFirstByTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByEmail looks up an active user by normalized email. When the same
// address exists on several tenants the oldest account wins.
func (r *Repository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.DB(ctx).
		Where("email = ? AND is_active = ?", normalized, true).
		Order("created_at ASC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CountAdmins reports how many ADMIN users a tenant has.
func (r *Repository) CountAdmins(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, enums.UserRoleAdmin).
		Count(&count).Error
	return count, err
}
