package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Checkout session metadata keys. Webhook handlers read them back to correlate
// provider objects with local tenants.
const (
	MetadataTenantID     = "tenantId"
	MetadataTenantName   = "tenantName"
	MetadataEmail        = "email"
	MetadataPlan         = "plan"
	MetadataBillingCycle = "billingCycle"
)

// ErrNotConfigured is returned by every Unconfigured call.
var ErrNotConfigured = errors.New("payment integration not configured")

// CheckoutRequest describes a hosted checkout for a pending tenant.
type CheckoutRequest struct {
	TenantID     uuid.UUID
	TenantName   string
	Email        string
	Plan         enums.Plan
	BillingCycle enums.BillingCycle
	AmountCents  int64
}

// Metadata returns the correlation metadata embedded in the session.
func (r CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		MetadataTenantID:     r.TenantID.String(),
		MetadataTenantName:   r.TenantName,
		MetadataEmail:        r.Email,
		MetadataPlan:         string(r.Plan),
		MetadataBillingCycle: string(r.BillingCycle),
	}
}

// CheckoutSession is the redirect target returned to the client.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionSummary is the part of a past checkout session the resolver needs.
type SessionSummary struct {
	ID       string
	TenantID string
	Email    string
	Created  time.Time
}

// Gateway is the payment processor surface used by onboarding and webhooks.
type Gateway interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ListCheckoutSessions(ctx context.Context, customerID string) ([]SessionSummary, error)
	ParseWebhook(payload []byte, signature string) (*stripe.Event, error)
}

// Unconfigured is the Gateway used when no processor credentials are set.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) CreateCheckoutSession(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListCheckoutSessions(context.Context, string) ([]SessionSummary, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ParseWebhook([]byte, string) (*stripe.Event, error) {
	return nil, ErrNotConfigured
}
