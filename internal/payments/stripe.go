package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	pkgstripe "github.com/oficinaflow/oficinaflow-backend/pkg/stripe"
)

type sessionIterator interface {
	Next() bool
	CheckoutSession() *stripe.CheckoutSession
	Err() error
}

// StripeGateway implements Gateway with Stripe Checkout in subscription mode.
type StripeGateway struct {
	client     *pkgstripe.Client
	successURL string
	cancelURL  string

	newSession   func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	listSessions func(params *stripe.CheckoutSessionListParams) sessionIterator
}

// NewGateway returns a StripeGateway when client is set and Unconfigured otherwise.
func NewGateway(client *pkgstripe.Client, cfg config.StripeConfig) Gateway {
	if client == nil {
		return Unconfigured{}
	}
	return &StripeGateway{
		client:     client,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		newSession: session.New,
		listSessions: func(params *stripe.CheckoutSessionListParams) sessionIterator {
			return session.List(params)
		},
	}
}

func (g *StripeGateway) Configured() bool { return true }

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	metadata := req.Metadata()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(req.TenantID.String()),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.client.Currency()),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("OficinaFlow %s", req.Plan.DisplayName())),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(req.BillingCycle.Interval()),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Metadata = metadata
	params.Context = ctx

	sess, err := g.newSession(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ListCheckoutSessions returns the customer's most recent sessions, newest first,
// capped at the configured lookup limit.
func (g *StripeGateway) ListCheckoutSessions(ctx context.Context, customerID string) ([]SessionSummary, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, nil
	}
	limit := g.client.SessionLookupLimit()
	params := &stripe.CheckoutSessionListParams{Customer: stripe.String(customerID)}
	params.Limit = stripe.Int64(limit)
	params.Context = ctx

	iter := g.listSessions(params)
	var out []SessionSummary
	for iter.Next() {
		sess := iter.CheckoutSession()
		if sess == nil {
			continue
		}
		out = append(out, summarize(sess))
		if int64(len(out)) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.client.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: g.client.IgnoreAPIVersion(),
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func summarize(sess *stripe.CheckoutSession) SessionSummary {
	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	return SessionSummary{
		ID:       sess.ID,
		TenantID: strings.TrimSpace(sess.Metadata[MetadataTenantID]),
		Email:    email,
		Created:  time.Unix(sess.Created, 0).UTC(),
	}
}
