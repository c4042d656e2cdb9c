package tenants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/repo"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Repository handles tenant persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByDocument(ctx context.Context, document string) (*models.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	FindMostRecentByStatus(ctx context.Context, status enums.TenantStatus) (*models.Tenant, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.TenantStatus, to enums.TenantStatus, plan *enums.Plan) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a tenant repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, tenant *models.Tenant) error {
	return r.DB(ctx).Create(tenant).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByDocument(ctx context.Context, document string) (*models.Tenant, error) {
	return r.first(ctx, "document = ?", document)
}

func (r *repository) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return r.first(ctx, "subdomain = ?", subdomain)
}

func (r *repository) FindMostRecentByStatus(ctx context.Context, status enums.TenantStatus) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.DB(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// TransitionStatus moves the tenant to `to` only while its current status is
// one of `from`. It reports whether a row changed.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.TenantStatus, to enums.TenantStatus, plan *enums.Plan) (bool, error) {
	updates := map[string]any{"status": to}
	if plan != nil {
		updates["plan"] = *plan
	}
	res := r.DB(ctx).
		Model(&models.Tenant{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.DB(ctx).Where(query, args...).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}
