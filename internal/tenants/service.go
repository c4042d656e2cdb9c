package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

// Service owns tenant status transitions driven by billing events.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the tenant lifecycle service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// WithTx returns a copy of the service whose writes join tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{repo: s.repo.WithTx(tx), logg: s.logg}
}

// Get loads a tenant, mapping a missing row to NOT_FOUND.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return tenant, nil
}

// ActivateOnCheckout moves a PENDING tenant to ACTIVE on plan. Any other
// status is left untouched and reported as false.
func (s *Service) ActivateOnCheckout(ctx context.Context, id uuid.UUID, plan enums.Plan) (bool, error) {
	return s.transition(ctx, id, enums.TenantStatusActive, &plan)
}

// SuspendOnSubscriptionDeleted moves an ACTIVE tenant to SUSPENDED.
func (s *Service) SuspendOnSubscriptionDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, id, enums.TenantStatusSuspended, nil)
}

// Cancel moves any non-cancelled tenant to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, id, enums.TenantStatusCancelled, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to enums.TenantStatus, plan *enums.Plan) (bool, error) {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	ctx = s.logg.WithFields(s.logg.WithTenantID(ctx, id.String()), map[string]any{
		"from_status": tenant.Status,
		"to_status":   to,
	})

	if tenant.Status == to {
		s.logg.Info(ctx, "tenant already in target status")
		return false, nil
	}
	if !tenant.Status.CanTransitionTo(to) {
		s.logg.Info(ctx, "tenant transition skipped")
		return false, nil
	}

	changed, err := s.repo.TransitionStatus(ctx, id, []enums.TenantStatus{tenant.Status}, to, plan)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("set tenant status %s", to))
	}
	if !changed {
		// another writer moved the tenant between the read and the update
		s.logg.Info(ctx, "tenant status changed concurrently; transition skipped")
		return false, nil
	}
	s.logg.Info(ctx, "tenant status updated")
	return true, nil
}
