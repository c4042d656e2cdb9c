package notifications

import (
	"context"
	"time"

	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// Kind names a notification template.
type Kind string

const (
	KindWelcome             Kind = "welcome"
	KindPaymentFailed       Kind = "payment_failed"
	KindSubscriptionChanged Kind = "subscription_changed"
	KindTrialEnding         Kind = "trial_ending"
)

// Tenant is the tenant context shared by every message.
type Tenant struct {
	Name      string
	Subdomain string
	Plan      enums.Plan
}

type WelcomeMessage struct {
	Recipient users.Admin
	Tenant    Tenant
	// TempPassword is empty when the admin chose a password at registration.
	TempPassword string
}

type PaymentFailedMessage struct {
	Recipient users.Admin
	Tenant    Tenant
	Reason    string
}

type SubscriptionChangedMessage struct {
	Recipient    users.Admin
	Tenant       Tenant
	PreviousPlan enums.Plan
	Cancelled    bool
}

type TrialEndingMessage struct {
	Recipient users.Admin
	Tenant    Tenant
	TrialEnd  *time.Time
}

// Dispatcher sends lifecycle notifications to a tenant admin.
type Dispatcher interface {
	Welcome(ctx context.Context, msg WelcomeMessage) error
	PaymentFailed(ctx context.Context, msg PaymentFailedMessage) error
	SubscriptionChanged(ctx context.Context, msg SubscriptionChangedMessage) error
	TrialEnding(ctx context.Context, msg TrialEndingMessage) error
}
