package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

// Strategy names, in resolution order.
const (
	StrategySubscription    = "subscription"
	StrategyCheckoutSession = "checkout_session"
	StrategyBillingEmail    = "billing_email"
	StrategyPendingTenant   = "pending_tenant"
)

type tenantFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindMostRecentByStatus(ctx context.Context, status enums.TenantStatus) (*models.Tenant, error)
}

type subscriptionFinder interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	FindByProviderIDs(ctx context.Context, customerID, subscriptionID string) (*models.Subscription, error)
}

type userFinder interface {
	FindAdminByTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
}

type sessionLister interface {
	Configured() bool
	ListCheckoutSessions(ctx context.Context, customerID string) ([]payments.SessionSummary, error)
}

// Query holds whatever identifiers an inbound provider object carried.
type Query struct {
	CustomerID     string
	SubscriptionID string
	BillingEmail   string
	BillingName    string
}

func (q Query) normalized() Query {
	return Query{
		CustomerID:     strings.TrimSpace(q.CustomerID),
		SubscriptionID: strings.TrimSpace(q.SubscriptionID),
		BillingEmail:   users.NormalizeEmail(q.BillingEmail),
		BillingName:    strings.TrimSpace(q.BillingName),
	}
}

// Result is the tenant an event belongs to. Subscription may be nil when the
// tenant has not completed checkout; Admin may be ephemeral.
type Result struct {
	Tenant       *models.Tenant
	Subscription *models.Subscription
	Admin        users.Admin
	Strategy     string
}

// errUpstream marks a strategy failure caused by the payment gateway rather
// than local storage. Those are skipped; storage failures stop the chain.
var errUpstream = errors.New("payment gateway unavailable")

// Strategy is one correlation attempt. A nil result with a nil error means "no match".
// Uncorrelated strategies guess rather than match, so they only run when
// every earlier strategy cleanly missed.
type Strategy struct {
	Name         string
	Uncorrelated bool
	Resolve      func(ctx context.Context, q Query) (*Result, error)
}

// Params wires the resolver collaborators.
type Params struct {
	Tenants           tenantFinder
	Subscriptions     subscriptionFinder
	Users             userFinder
	Gateway           sessionLister
	PlaceholderDomain string
	Logger            *logger.Logger
}

// Resolver maps provider identifiers back to a local tenant by trying each
// strategy in order and returning the first match.
type Resolver struct {
	tenants           tenantFinder
	subscriptions     subscriptionFinder
	users             userFinder
	gateway           sessionLister
	placeholderDomain string
	logg              *logger.Logger
	strategies        []Strategy
}

// New builds a resolver with the default strategy chain.
func New(params Params) (*Resolver, error) {
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant finder required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription finder required")
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

	r := &Resolver{
		tenants:           params.Tenants,
		subscriptions:     params.Subscriptions,
		users:             params.Users,
		gateway:           gateway,
		placeholderDomain: domain,
		logg:              params.Logger,
	}
	r.strategies = []Strategy{
		{Name: StrategySubscription, Resolve: r.bySubscription},
		{Name: StrategyCheckoutSession, Resolve: r.byCheckoutSession},
		{Name: StrategyBillingEmail, Resolve: r.byBillingEmail},
		{Name: StrategyPendingTenant, Uncorrelated: true, Resolve: r.byMostRecentPending},
	}
	return r, nil
}

// Strategies returns the strategy names in the order they run.
func (r *Resolver) Strategies() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Resolve runs the chain. A gateway failure is logged and the chain moves on
// to the next correlated strategy; any other failure is returned as a
// DEPENDENCY_ERROR because a miss cannot be told apart from an outage. When
// nothing matches the skipped gateway failures are attached to NOT_FOUND.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Result, error) {
	q = q.normalized()
	ctx = r.logg.WithFields(ctx, map[string]any{
		"customer_id":     q.CustomerID,
		"subscription_id": q.SubscriptionID,
	})

	var errs error
	for _, strategy := range r.strategies {
		sctx := r.logg.WithField(ctx, "strategy", strategy.Name)
		if strategy.Uncorrelated && errs != nil {
			r.logg.Warn(sctx, "skipping uncorrelated fallback after an earlier strategy failed")
			continue
		}
		result, err := strategy.Resolve(ctx, q)
		if err != nil {
			if !errors.Is(err, errUpstream) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tenant via "+strategy.Name)
			}
			r.logg.Warn(sctx, fmt.Sprintf("resolver strategy failed: %v", err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", strategy.Name, err))
			continue
		}
		if result == nil || result.Tenant == nil {
			continue
		}
		result.Strategy = strategy.Name
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"strategy":  strategy.Name,
			"tenant_id": result.Tenant.ID.String(),
		}), "tenant resolved")
		return result, nil
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, errs, "no tenant matches the provider identifiers")
}

func (r *Resolver) bySubscription(ctx context.Context, q Query) (*Result, error) {
	if q.CustomerID == "" && q.SubscriptionID == "" {
		return nil, nil
	}
	sub, err := r.subscriptions.FindByProviderIDs(ctx, q.CustomerID, q.SubscriptionID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	tenant, err := r.tenants.FindByID(ctx, sub.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription %s references missing tenant %s", sub.ID, sub.TenantID)
		}
		return nil, err
	}
	admin, err := r.persistedAdmin(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		admin = users.NewEphemeral(q.BillingEmail, q.BillingName)
	}
	return &Result{Tenant: tenant, Subscription: sub, Admin: admin}, nil
}

func (r *Resolver) byCheckoutSession(ctx context.Context, q Query) (*Result, error) {
	if q.CustomerID == "" || !r.gateway.Configured() {
		return nil, nil
	}
	sessions, err := r.gateway.ListCheckoutSessions(ctx, q.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list checkout sessions: %w", errUpstream, err)
	}
	for _, sess := range sessions {
		tenantID, err := uuid.Parse(sess.TenantID)
		if err != nil {
			continue
		}
		tenant, err := r.tenants.FindByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		admin, err := r.persistedAdmin(ctx, tenant.ID)
		if err != nil {
			return nil, err
		}
		if admin == nil {
			admin = firstAdmin(users.NewEphemeral(sess.Email, q.BillingName), users.NewEphemeral(q.BillingEmail, q.BillingName))
		}
		sub, err := r.subscriptionFor(ctx, tenant.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Tenant: tenant, Subscription: sub, Admin: admin}, nil
	}
	return nil, nil
}

func (r *Resolver) byBillingEmail(ctx context.Context, q Query) (*Result, error) {
	if q.BillingEmail == "" {
		return nil, nil
	}
	user, err := r.users.FindActiveByEmail(ctx, q.BillingEmail)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	tenant, err := r.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	admin, err := r.persistedAdmin(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		admin = users.NewEphemeral(q.BillingEmail, firstNonEmpty(q.BillingName, user.Name))
	}
	sub, err := r.subscriptionFor(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Tenant: tenant, Subscription: sub, Admin: admin}, nil
}

// byMostRecentPending attributes the event to the newest PENDING tenant. It
// carries no correlation with the paying customer and can pick the wrong
// tenant when several sign up at once; it only runs when a customer id exists.
func (r *Resolver) byMostRecentPending(ctx context.Context, q Query) (*Result, error) {
	if q.CustomerID == "" {
		return nil, nil
	}
	tenant, err := r.tenants.FindMostRecentByStatus(ctx, enums.TenantStatusPending)
	if err != nil {
		return nil, ignoreNotFound(err)
	}

	admin, err := r.persistedAdmin(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		admin = users.NewEphemeral(q.BillingEmail, q.BillingName)
	}
	if admin == nil {
		admin = r.latestSessionAdmin(ctx, q)
	}
	if admin == nil {
		admin = users.NewEphemeral(r.placeholderEmail(tenant.Subdomain), tenant.Name)
	}

	r.logg.Warn(r.logg.WithTenantID(ctx, tenant.ID.String()), "event attributed to most recent pending tenant without correlation")
	return &Result{Tenant: tenant, Admin: admin}, nil
}

func (r *Resolver) latestSessionAdmin(ctx context.Context, q Query) users.Admin {
	if !r.gateway.Configured() {
		return nil
	}
	sessions, err := r.gateway.ListCheckoutSessions(ctx, q.CustomerID)
	if err != nil {
		r.logg.Warn(ctx, fmt.Sprintf("list checkout sessions for fallback email: %v", err))
		return nil
	}
	var latest *payments.SessionSummary
	for i := range sessions {
		if sessions[i].Email == "" {
			continue
		}
		if latest == nil || sessions[i].Created.After(latest.Created) {
			latest = &sessions[i]
		}
	}
	if latest == nil {
		return nil
	}
	return users.NewEphemeral(latest.Email, q.BillingName)
}

func (r *Resolver) placeholderEmail(subdomain string) string {
	return users.PlaceholderEmail(subdomain, r.placeholderDomain)
}

func (r *Resolver) persistedAdmin(ctx context.Context, tenantID uuid.UUID) (users.Admin, error) {
	user, err := r.users.FindAdminByTenant(ctx, tenantID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return users.NewPersisted(user), nil
}

func (r *Resolver) subscriptionFor(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := r.subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return sub, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func firstAdmin(candidates ...users.Admin) users.Admin {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
