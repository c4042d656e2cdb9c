package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	stripewebhook "github.com/oficinaflow/oficinaflow-backend/internal/webhooks/stripe"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
)

const testSecret = "whsec_test"

type fakeStripeWebhookService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type signingParser struct{}

func (signingParser) ParseWebhook(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, testSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type inMemoryStore struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{keys: map[string]string{}}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "oficinaflow:idempotency:" + scope + ":" + id
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func newGuard(t *testing.T, store *inMemoryStore) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(store, time.Minute, "")
	require.NoError(t, err)
	return guard
}

func signedEvent(t *testing.T) ([]byte, string) {
	t.Helper()
	event := map[string]any{
		"id":          "evt_" + uuid.NewString(),
		"object":      "event",
		"type":        "invoice.payment_succeeded",
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{"id": "in_1", "object": "invoice", "customer": "cus_1"},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func post(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/onboarding/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(signatureHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookAcknowledgesAndSkipsReplays(t *testing.T) {
	payload, header := signedEvent(t)
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, signingParser{}, newGuard(t, newInMemoryStore()), nil, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, 1, svc.calls)
}

func TestStripeWebhookWithoutGuardProcessesEveryDelivery(t *testing.T) {
	payload, header := signedEvent(t)
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, signingParser{}, nil, nil, nil)

	require.Equal(t, http.StatusOK, post(handler, payload, header).Code)
	require.Equal(t, http.StatusOK, post(handler, payload, header).Code)
	assert.Equal(t, 2, svc.calls)
}

func TestStripeWebhookGuardFailureStillProcesses(t *testing.T) {
	payload, header := signedEvent(t)
	store := newInMemoryStore()
	store.err = errors.New("redis down")
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, signingParser{}, newGuard(t, store), nil, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls)
}

func TestStripeWebhookRejectsBadSignatures(t *testing.T) {
	payload, _ := signedEvent(t)
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, signingParser{}, nil, nil, nil)

	assert.Equal(t, http.StatusBadRequest, post(handler, payload, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(handler, payload, "t=1,v1=invalid").Code)
	assert.Zero(t, svc.calls)
}

func TestStripeWebhookUnconfiguredGateway(t *testing.T) {
	payload, header := signedEvent(t)
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, payments.Unconfigured{}, nil, nil, nil)

	rec := post(handler, payload, header)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeConfiguration))
	assert.Zero(t, svc.calls)
}

func TestStripeWebhookMalformedEventReleasesGuard(t *testing.T) {
	payload, header := signedEvent(t)
	svc := &fakeStripeWebhookService{
		err: pkgerrors.Wrap(pkgerrors.CodeValidation, stripewebhook.ErrMalformedEvent, "tenant id missing"),
	}
	handler := StripeWebhook(svc, signingParser{}, newGuard(t, newInMemoryStore()), nil, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// released, so the redelivery reaches the service again
	rec = post(handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, svc.calls)
}
