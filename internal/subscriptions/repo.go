package subscriptions

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/repo"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	Save(ctx context.Context, subscription *models.Subscription) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	FindByProviderIDs(ctx context.Context, customerID, subscriptionID string) (*models.Subscription, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, status enums.SubscriptionStatus) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.DB(ctx).Create(subscription).Error
}

func (r *repository) Save(ctx context.Context, subscription *models.Subscription) error {
	return r.DB(ctx).Save(subscription).Error
}

func (r *repository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.DB(ctx).Where("tenant_id = ?", tenantID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByProviderIDs matches on either provider id; a subscription id match is
// preferred when both ids point at different rows.
func (r *repository) FindByProviderIDs(ctx context.Context, customerID, subscriptionID string) (*models.Subscription, error) {
	customerID = strings.TrimSpace(customerID)
	subscriptionID = strings.TrimSpace(subscriptionID)
	if customerID == "" && subscriptionID == "" {
		return nil, gorm.ErrRecordNotFound
	}

	if subscriptionID != "" {
		var sub models.Subscription
		err := r.DB(ctx).Where("provider_subscription_id = ?", subscriptionID).First(&sub).Error
		if err == nil {
			return &sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) || customerID == "" {
			return nil, err
		}
	}

	var sub models.Subscription
	if err := r.DB(ctx).
		Where("provider_customer_id = ?", customerID).
		Order("updated_at DESC").
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateStatus(ctx context.Context, tenantID uuid.UUID, status enums.SubscriptionStatus) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("tenant_id = ?", tenantID).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
