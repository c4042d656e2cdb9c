package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/oficinaflow/oficinaflow-backend/internal/onboarding"
	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOnboarding struct{}

func (stubOnboarding) Register(context.Context, onboarding.RegisterRequest) (*onboarding.RegisterResult, error) {
	return &onboarding.RegisterResult{TenantID: uuid.New(), Subdomain: "oficina"}, nil
}

func (stubOnboarding) CheckStatus(context.Context, onboarding.CheckStatusRequest) (*onboarding.CheckStatusResult, error) {
	return &onboarding.CheckStatusResult{}, nil
}

func (stubOnboarding) CreateCheckoutSession(context.Context, onboarding.CheckoutRequest) (*onboarding.CheckoutResult, error) {
	return &onboarding.CheckoutResult{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
}

type stubWebhookService struct{}

func (stubWebhookService) HandleEvent(context.Context, *stripe.Event) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	wm := metrics.NewWebhookMetrics(reg)
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	return NewRouter(cfg, nil, stubPinger{}, nil, reg, stubOnboarding{}, payments.Unconfigured{}, stubWebhookService{}, nil, wm), reg
}

func TestRouterServesHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	}
}

func TestRouterOnboardingRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		path   string
		body   string
		status int
	}{
		{"/onboarding/register", `{"name":"Oficina","email":"a@b.com","documentType":"CPF","document":"123","subdomain":"oficina","plan":"BASIC"}`, http.StatusCreated},
		{"/onboarding/check-status", `{"document":"123"}`, http.StatusOK},
		{"/onboarding/checkout", `{"tenantId":"` + uuid.NewString() + `","plan":"BASIC"}`, http.StatusOK},
		{"/onboarding/webhooks/stripe", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body)))
		assert.Equal(t, tc.status, rec.Code, tc.path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/onboarding/register", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterExposesMetrics(t *testing.T) {
	router, reg := newTestRouter(t)
	require.NotNil(t, reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
