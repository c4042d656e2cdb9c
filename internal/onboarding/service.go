package onboarding

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	"github.com/oficinaflow/oficinaflow-backend/internal/plans"
	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
	"github.com/oficinaflow/oficinaflow-backend/pkg/security"
)

type tenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByDocument(ctx context.Context, document string) (*models.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
}

type userFinder interface {
	FindFirstByTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
}

// ServiceParams wires the onboarding flow.
type ServiceParams struct {
	Tenants           tenantStore
	Users             userFinder
	Gateway           payments.Gateway
	PasswordConfig    config.PasswordConfig
	PlaceholderDomain string
	Logger            *logger.Logger
}

// Service registers pending tenants and opens checkout sessions for them.
type Service struct {
	tenants           tenantStore
	users             userFinder
	gateway           payments.Gateway
	passwordCfg       config.PasswordConfig
	placeholderDomain string
	logg              *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant store required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user finder required")
	}
	gateway := params.Gateway
	if gateway == nil {
		gateway = payments.Unconfigured{}
	}
	domain := strings.TrimSpace(params.PlaceholderDomain)
	if domain == "" {
		domain = "oficinaflow.local"
	}
	return &Service{
		tenants:           params.Tenants,
		users:             params.Users,
		gateway:           gateway,
		passwordCfg:       params.PasswordConfig,
		placeholderDomain: domain,
		logg:              params.Logger,
	}, nil
}

// Register creates a PENDING tenant. Retrying with the same document returns
// the existing pending tenant instead of creating another row.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	document := normalizeDocument(req.Document)
	subdomain := normalizeSubdomain(req.Subdomain)
	email := users.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if document == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !slug.IsSlug(subdomain) || strings.Contains(subdomain, "_") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subdomain must contain only lowercase letters, digits and hyphens")
	}
	plan, err := enums.ParsePlan(req.Plan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan")
	}
	documentType, err := enums.ParseDocumentType(req.DocumentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid document type")
	}

	ctx = s.logg.WithField(ctx, "subdomain", subdomain)

	existing, err := s.tenants.FindByDocument(ctx, document)
	switch {
	case err == nil:
		return s.existingRegistration(ctx, existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant by document")
	}

	if _, err := s.tenants.FindBySubdomain(ctx, subdomain); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "subdomain already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant by subdomain")
	}

	tenant := &models.Tenant{
		Document:     document,
		DocumentType: documentType,
		Subdomain:    subdomain,
		Name:         name,
		Plan:         plan,
		Status:       enums.TenantStatusPending,
		AdminEmail:   &email,
		AdminName:    &name,
	}
	if password := strings.TrimSpace(req.Password); password != "" {
		hash, err := security.HashPassword(password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		tenant.AdminPasswordHash = &hash
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.afterUniqueViolation(ctx, document)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tenant")
	}

	s.logg.Info(s.logg.WithTenantID(ctx, tenant.ID.String()), "tenant registered")
	return &RegisterResult{TenantID: tenant.ID, Subdomain: tenant.Subdomain}, nil
}

func (s *Service) existingRegistration(ctx context.Context, tenant *models.Tenant) (*RegisterResult, error) {
	if tenant.Status != enums.TenantStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "document already registered")
	}
	s.logg.Info(s.logg.WithTenantID(ctx, tenant.ID.String()), "returning existing pending registration")
	return &RegisterResult{TenantID: tenant.ID, Subdomain: tenant.Subdomain, Existing: true}, nil
}

// afterUniqueViolation handles the losing side of a concurrent registration.
func (s *Service) afterUniqueViolation(ctx context.Context, document string) (*RegisterResult, error) {
	existing, err := s.tenants.FindByDocument(ctx, document)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "subdomain already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload tenant after conflict")
	}
	return s.existingRegistration(ctx, existing)
}

// CheckStatus reports whether a registration exists for the document, falling
// back to the email of an active user.
func (s *Service) CheckStatus(ctx context.Context, req CheckStatusRequest) (*CheckStatusResult, error) {
	document := normalizeDocument(req.Document)
	email := users.NormalizeEmail(req.Email)
	if document == "" && email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document or email is required")
	}

	if document != "" {
		tenant, err := s.tenants.FindByDocument(ctx, document)
		if err == nil {
			return statusResult(tenant), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant by document")
		}
	}

	if email != "" {
		user, err := s.users.FindActiveByEmail(ctx, email)
		if err == nil {
			tenant, err := s.tenants.FindByID(ctx, user.TenantID)
			if err == nil {
				return statusResult(tenant), nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant for user")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user by email")
		}
	}

	return &CheckStatusResult{Exists: false}, nil
}

func statusResult(tenant *models.Tenant) *CheckStatusResult {
	id := tenant.ID
	subdomain := tenant.Subdomain
	status := tenant.Status.String()
	return &CheckStatusResult{Exists: true, TenantID: &id, Subdomain: &subdomain, Status: &status}
}

// CreateCheckoutSession opens a hosted subscription checkout for a PENDING tenant.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if !s.gateway.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment integration is not configured")
	}

	tenantID, err := uuid.Parse(strings.TrimSpace(req.TenantID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id")
	}
	plan, err := enums.ParsePlan(req.Plan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan")
	}
	cycle := enums.BillingCycleMonthly
	if strings.TrimSpace(req.BillingCycle) != "" {
		cycle, err = enums.ParseBillingCycle(req.BillingCycle)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle")
		}
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	ctx = s.logg.WithTenantID(ctx, tenant.ID.String())
	if tenant.Status != enums.TenantStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tenant already processed")
	}

	email, err := s.contactEmail(ctx, tenant)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		TenantID:     tenant.ID,
		TenantName:   tenant.Name,
		Email:        email,
		Plan:         plan,
		BillingCycle: cycle,
		AmountCents:  plans.PriceCents(plan, cycle),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session has no redirect url")
	}

	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session created")
	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

func (s *Service) contactEmail(ctx context.Context, tenant *models.Tenant) (string, error) {
	if tenant.AdminEmail != nil {
		if email := users.NormalizeEmail(*tenant.AdminEmail); email != "" {
			return email, nil
		}
	}
	user, err := s.users.FindFirstByTenant(ctx, tenant.ID)
	if err == nil && user.Email != "" {
		return user.Email, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant user")
	}
	return users.PlaceholderEmail(tenant.Name, s.placeholderDomain), nil
}
