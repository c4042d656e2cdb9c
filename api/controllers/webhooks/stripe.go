package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/oficinaflow/oficinaflow-backend/api/responses"
	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	stripewebhook "github.com/oficinaflow/oficinaflow-backend/internal/webhooks/stripe"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
	"github.com/oficinaflow/oficinaflow-backend/pkg/metrics"
	"github.com/oficinaflow/oficinaflow-backend/pkg/types"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = int64(65536)
	provider        = "stripe"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventParser interface {
	ParseWebhook(payload []byte, signature string) (*stripe.Event, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// StripeWebhook verifies the delivery signature and hands the event to svc.
// Once the signature checks out the delivery is acknowledged regardless of
// what the handlers did, except for events that can never be processed.
// guard is optional; without it redelivered events reach the handlers again.
func StripeWebhook(svc StripeWebhookService, parser eventParser, guard stripeWebhookGuard, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || parser == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := parser.ParseWebhook(payload, sigHeader)
		if errors.Is(err, payments.ErrNotConfigured) {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "payment integration not configured"))
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithEvent(ctx, event.ID, string(event.Type))
		}

		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, event.ID)
			switch {
			case err != nil:
				if logg != nil {
					logg.Error(ctx, "stripe idempotency guard unavailable, processing anyway", err)
				}
			case seen:
				m.IncDuplicate(provider)
				if logg != nil {
					logg.Info(ctx, "stripe event already processed")
				}
				responses.WriteJSON(w, http.StatusOK, types.WebhookAck{Received: true})
				return
			}
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if guard != nil {
				if relErr := guard.Release(ctx, event.ID); relErr != nil && logg != nil {
					logg.Error(ctx, "release stripe event", relErr)
				}
			}
			if !errors.Is(err, stripewebhook.ErrMalformedEvent) && logg != nil {
				logg.Error(ctx, "stripe event rejected", err)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, types.WebhookAck{Received: true})
	}
}
