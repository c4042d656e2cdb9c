package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

// CheckoutInput carries what a completed checkout knows about the new subscription.
type CheckoutInput struct {
	TenantID       uuid.UUID
	Plan           enums.Plan
	BillingCycle   enums.BillingCycle
	CustomerID     string
	SubscriptionID string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
}

// SyncInput mirrors a provider subscription.updated payload.
type SyncInput struct {
	TenantID       uuid.UUID
	Plan           enums.Plan
	BillingCycle   enums.BillingCycle
	ProviderStatus string
	CustomerID     string
	SubscriptionID string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	TrialEnd       *time.Time
}

// SyncResult reports what changed during a provider sync.
type SyncResult struct {
	Subscription *models.Subscription
	PreviousPlan enums.Plan
	PlanChanged  bool
}

// Service owns subscription status, plan and billing cycle transitions.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the subscription lifecycle service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// WithTx returns a copy of the service whose writes join tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{repo: s.repo.WithTx(tx), logg: s.logg}
}

// FindByTenant returns the tenant's current subscription or gorm.ErrRecordNotFound.
func (s *Service) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	return s.repo.FindByTenant(ctx, tenantID)
}

// UpsertForCheckout creates the tenant's subscription or refreshes the existing
// one. It reports whether a row was created.
func (s *Service) UpsertForCheckout(ctx context.Context, input CheckoutInput) (*models.Subscription, bool, error) {
	if input.TenantID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	cycle := input.BillingCycle
	if !cycle.IsValid() {
		cycle = enums.BillingCycleMonthly
	}

	existing, err := s.repo.FindByTenant(ctx, input.TenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	if existing == nil {
		sub := &models.Subscription{
			TenantID:               input.TenantID,
			Plan:                   input.Plan,
			BillingCycle:           cycle,
			Status:                 enums.SubscriptionStatusActive,
			CurrentPeriodStart:     input.PeriodStart,
			CurrentPeriodEnd:       input.PeriodEnd,
			ProviderCustomerID:     trimmedPtr(input.CustomerID),
			ProviderSubscriptionID: trimmedPtr(input.SubscriptionID),
		}
		if err := s.repo.Create(ctx, sub); err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		return sub, true, nil
	}

	existing.Plan = input.Plan
	existing.BillingCycle = cycle
	existing.Status = enums.SubscriptionStatusActive
	if id := trimmedPtr(input.CustomerID); id != nil {
		existing.ProviderCustomerID = id
	}
	if id := trimmedPtr(input.SubscriptionID); id != nil {
		existing.ProviderSubscriptionID = id
	}
	if input.PeriodStart != nil {
		existing.CurrentPeriodStart = input.PeriodStart
	}
	if input.PeriodEnd != nil {
		existing.CurrentPeriodEnd = input.PeriodEnd
	}
	if err := s.repo.Save(ctx, existing); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
	}
	return existing, false, nil
}

// MarkPastDue records a failed invoice.
func (s *Service) MarkPastDue(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.setStatus(ctx, tenantID, enums.SubscriptionStatusPastDue)
}

// MarkActive records a paid invoice.
func (s *Service) MarkActive(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.setStatus(ctx, tenantID, enums.SubscriptionStatusActive)
}

// MarkCancelled records a deleted provider subscription.
func (s *Service) MarkCancelled(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.setStatus(ctx, tenantID, enums.SubscriptionStatusCancelled)
}

// setStatus overwrites the status without a state guard; the provider is the
// authority and events may arrive out of order. A missing row is not an error.
func (s *Service) setStatus(ctx context.Context, tenantID uuid.UUID, status enums.SubscriptionStatus) (bool, error) {
	changed, err := s.repo.UpdateStatus(ctx, tenantID, status)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	ctx = s.logg.WithField(s.logg.WithTenantID(ctx, tenantID.String()), "subscription_status", status)
	if !changed {
		s.logg.Warn(ctx, "no subscription row for tenant; status not recorded")
		return false, nil
	}
	s.logg.Info(ctx, "subscription status updated")
	return true, nil
}

// SyncFromProviderSubscription applies plan and cycle from the provider. Status
// becomes ACTIVE only when the provider says "active"; any other provider
// status keeps the local one.
func (s *Service) SyncFromProviderSubscription(ctx context.Context, input SyncInput) (*SyncResult, error) {
	sub, err := s.repo.FindByTenant(ctx, input.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	result := &SyncResult{Subscription: sub, PreviousPlan: sub.Plan}
	if input.Plan.IsValid() && input.Plan != sub.Plan {
		sub.Plan = input.Plan
		result.PlanChanged = true
	}
	if input.BillingCycle.IsValid() {
		sub.BillingCycle = input.BillingCycle
	}
	if mapped, ok := MapProviderStatus(input.ProviderStatus); ok && mapped == enums.SubscriptionStatusActive {
		sub.Status = enums.SubscriptionStatusActive
	} else {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"tenant_id":       input.TenantID.String(),
			"provider_status": input.ProviderStatus,
		}), "provider status not mirrored; keeping local status")
	}
	if sub.ProviderCustomerID == nil {
		sub.ProviderCustomerID = trimmedPtr(input.CustomerID)
	}
	if sub.ProviderSubscriptionID == nil {
		sub.ProviderSubscriptionID = trimmedPtr(input.SubscriptionID)
	}
	if input.PeriodStart != nil {
		sub.CurrentPeriodStart = input.PeriodStart
	}
	if input.PeriodEnd != nil {
		sub.CurrentPeriodEnd = input.PeriodEnd
	}
	if input.TrialEnd != nil {
		sub.TrialEndsAt = input.TrialEnd
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save subscription")
	}
	return result, nil
}
