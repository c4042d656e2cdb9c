package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/notifications"
	"github.com/oficinaflow/oficinaflow-backend/internal/resolver"
	"github.com/oficinaflow/oficinaflow-backend/internal/subscriptions"
	"github.com/oficinaflow/oficinaflow-backend/internal/tenants"
	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
	"github.com/oficinaflow/oficinaflow-backend/pkg/metrics"
)

const provider = "stripe"

// ErrMalformedEvent marks an event that cannot be processed no matter how
// often it is retried. It is the only handler error HandleEvent surfaces.
var ErrMalformedEvent = errors.New("malformed stripe event")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type tenantResolver interface {
	Resolve(ctx context.Context, q resolver.Query) (*resolver.Result, error)
}

type handlerFunc func(s *Service, ctx context.Context, event *stripe.Event) error

// handlers is the closed set of events this service reacts to.
var handlers = map[stripe.EventType]handlerFunc{
	stripe.EventTypeCheckoutSessionCompleted:          (*Service).handleCheckoutCompleted,
	stripe.EventTypeCheckoutSessionAsyncPaymentFailed: (*Service).handleCheckoutAsyncPaymentFailed,
	stripe.EventTypePaymentIntentPaymentFailed:        (*Service).handlePaymentIntentFailed,
	stripe.EventTypeChargeFailed:                      (*Service).handleChargeFailed,
	stripe.EventTypeInvoicePaymentFailed:              (*Service).handleInvoicePaymentFailed,
	stripe.EventTypeInvoicePaymentSucceeded:           (*Service).handleInvoicePaymentSucceeded,
	stripe.EventTypeInvoiceUpcoming:                   (*Service).handleInvoiceUpcoming,
	stripe.EventTypeCustomerSubscriptionDeleted:       (*Service).handleSubscriptionDeleted,
	stripe.EventTypeCustomerSubscriptionUpdated:       (*Service).handleSubscriptionUpdated,
	stripe.EventTypeCustomerSubscriptionTrialWillEnd:  (*Service).handleTrialWillEnd,
}

// HandledEventTypes lists the event types with a registered handler, sorted.
func HandledEventTypes() []stripe.EventType {
	types := make([]stripe.EventType, 0, len(handlers))
	for t := range handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type ServiceParams struct {
	Tenants           *tenants.Service
	Subscriptions     *subscriptions.Service
	Users             *users.Repository
	Resolver          tenantResolver
	Notifier          notifications.Dispatcher
	TransactionRunner txRunner
	PasswordConfig    config.PasswordConfig
	PlaceholderDomain string
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service routes verified Stripe events to their handlers.
type Service struct {
	tenants           *tenants.Service
	subscriptions     *subscriptions.Service
	users             *users.Repository
	resolver          tenantResolver
	notifier          notifications.Dispatcher
	txRunner          txRunner
	passwordCfg       config.PasswordConfig
	placeholderDomain string
	metrics           *metrics.WebhookMetrics
	logg              *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	domain := strings.TrimSpace(params.PlaceholderDomain)
	if domain == "" {
		domain = "oficinaflow.local"
	}
	return &Service{
		tenants:           params.Tenants,
		subscriptions:     params.Subscriptions,
		users:             params.Users,
		resolver:          params.Resolver,
		notifier:          params.Notifier,
		txRunner:          params.TransactionRunner,
		passwordCfg:       params.PasswordConfig,
		placeholderDomain: domain,
		metrics:           params.Metrics,
		logg:              params.Logger,
	}, nil
}

// HandleEvent dispatches one verified event. Handler failures are logged and
// swallowed so the delivery is still acknowledged; only a malformed event is
// returned to the caller.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMalformedEvent, "stripe event data required")
	}

	eventType := string(event.Type)
	ctx = s.logg.WithEvent(ctx, event.ID, eventType)
	s.metrics.IncReceived(provider, eventType)

	handler, ok := handlers[event.Type]
	if !ok {
		s.logg.Debug(ctx, "ignoring unhandled stripe event")
		s.metrics.IncOutcome(provider, eventType, metrics.OutcomeIgnored)
		return nil
	}

	start := time.Now()
	err := s.run(ctx, handler, event)
	s.metrics.ObserveDuration(provider, eventType, time.Since(start))

	if err == nil {
		s.metrics.IncOutcome(provider, eventType, metrics.OutcomeHandled)
		return nil
	}
	s.metrics.IncOutcome(provider, eventType, metrics.OutcomeFailed)

	ctx = s.logg.WithFields(ctx, eventIdentifiers(event))
	if errors.Is(err, ErrMalformedEvent) {
		s.logg.Warn(ctx, fmt.Sprintf("rejecting malformed stripe event: %v", err))
		return err
	}
	s.logg.Error(ctx, "stripe webhook handler failed", err)
	return nil
}

func (s *Service) run(ctx context.Context, handler handlerFunc, event *stripe.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("handler panic: %v", rec))
		}
	}()
	return handler(s, ctx, event)
}

// eventIdentifiers extracts provider ids for failure logs without trusting
// the payload shape.
func eventIdentifiers(event *stripe.Event) map[string]any {
	fields := map[string]any{}
	if event == nil || event.Data == nil || event.Data.Object == nil {
		return fields
	}
	if id, ok := event.Data.Object["id"].(string); ok {
		fields["object_id"] = id
	}
	if customer := event.GetObjectValue("customer"); customer != "" {
		fields["customer_id"] = customer
	}
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionDeleted,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionTrialWillEnd:
		if id, ok := event.Data.Object["id"].(string); ok {
			fields["subscription_id"] = id
		}
	case stripe.EventTypeInvoicePaymentFailed,
		stripe.EventTypeInvoicePaymentSucceeded,
		stripe.EventTypeInvoiceUpcoming:
		if sub := nestedID(event.Data.Object, "parent", "subscription_details", "subscription"); sub != "" {
			fields["subscription_id"] = sub
		}
	default:
		if sub := event.GetObjectValue("subscription"); sub != "" {
			fields["subscription_id"] = sub
		}
	}
	return fields
}

// nestedID walks object along keys and returns the id found there, either a
// bare id or an expanded object's id. Missing levels yield "".
func nestedID(object map[string]any, keys ...string) string {
	var node any = object
	for _, key := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		node = m[key]
	}
	switch v := node.(type) {
	case string:
		return v
	case map[string]any:
		id, _ := v["id"].(string)
		return id
	}
	return ""
}
