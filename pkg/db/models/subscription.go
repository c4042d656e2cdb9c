package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Subscription is the local mirror of a tenant's recurring billing arrangement.
type Subscription struct {
	ID                     uuid.UUID                `gorm:"type:uuid;primaryKey"`
	TenantID               uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_subscriptions_tenant"`
	Plan                   enums.Plan               `gorm:"column:plan;not null"`
	BillingCycle           enums.BillingCycle       `gorm:"column:billing_cycle;not null;default:'MONTHLY'"`
	Status                 enums.SubscriptionStatus `gorm:"column:status;not null;default:'ACTIVE'"`
	CurrentPeriodStart     *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd       *time.Time               `gorm:"column:current_period_end"`
	TrialEndsAt            *time.Time               `gorm:"column:trial_ends_at"`
	ProviderCustomerID     *string                  `gorm:"column:provider_customer_id;index"`
	ProviderSubscriptionID *string                  `gorm:"column:provider_subscription_id;index"`
	CreatedAt              time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
