package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficinaflow/oficinaflow-backend/internal/onboarding"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/types"
)

type stubOnboardingService struct {
	registered  onboarding.RegisterRequest
	registerRes *onboarding.RegisterResult
	statusRes   *onboarding.CheckStatusResult
	checkoutRes *onboarding.CheckoutResult
	err         error
}

func (s *stubOnboardingService) Register(ctx context.Context, req onboarding.RegisterRequest) (*onboarding.RegisterResult, error) {
	s.registered = req
	return s.registerRes, s.err
}

func (s *stubOnboardingService) CheckStatus(ctx context.Context, req onboarding.CheckStatusRequest) (*onboarding.CheckStatusResult, error) {
	return s.statusRes, s.err
}

func (s *stubOnboardingService) CreateCheckoutSession(ctx context.Context, req onboarding.CheckoutRequest) (*onboarding.CheckoutResult, error) {
	return s.checkoutRes, s.err
}

func serve(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{
	"name": "  Oficina do Zé  ",
	"email": "ze@oficina.com.br",
	"documentType": "CNPJ",
	"document": "12345678000199",
	"subdomain": "oficina-do-ze",
	"plan": "BASIC"
}`

func TestOnboardingRegisterCreated(t *testing.T) {
	id := uuid.New()
	svc := &stubOnboardingService{registerRes: &onboarding.RegisterResult{TenantID: id, Subdomain: "oficina-do-ze"}}

	rec := serve(OnboardingRegister(svc, nil), registerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data onboarding.RegisterResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, id, body.Data.TenantID)
	assert.Equal(t, "Oficina do Zé", svc.registered.Name)
}

func TestOnboardingRegisterExistingPendingIsStillCreated(t *testing.T) {
	svc := &stubOnboardingService{registerRes: &onboarding.RegisterResult{TenantID: uuid.New(), Subdomain: "oficina-do-ze", Existing: true}}

	rec := serve(OnboardingRegister(svc, nil), registerBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "existing")
}

func TestOnboardingRegisterValidation(t *testing.T) {
	svc := &stubOnboardingService{}

	rec := serve(OnboardingRegister(svc, nil), `{"name":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "document")
	assert.Contains(t, details, "subdomain")

	rec = serve(OnboardingRegister(svc, nil), `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnboardingRegisterConflict(t *testing.T) {
	svc := &stubOnboardingService{err: pkgerrors.New(pkgerrors.CodeConflict, "document already registered")}

	rec := serve(OnboardingRegister(svc, nil), registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOnboardingCheckStatus(t *testing.T) {
	id := uuid.New()
	sub := "oficina-do-ze"
	svc := &stubOnboardingService{statusRes: &onboarding.CheckStatusResult{Exists: true, TenantID: &id, Subdomain: &sub}}

	rec := serve(OnboardingCheckStatus(svc, nil), `{"document":"12345678000199","email":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exists":true`)
	assert.Contains(t, rec.Body.String(), id.String())
}

func TestOnboardingCheckout(t *testing.T) {
	svc := &stubOnboardingService{checkoutRes: &onboarding.CheckoutResult{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}}
	body := `{"tenantId":"` + uuid.NewString() + `","plan":"PROFESSIONAL","billingCycle":"ANNUAL"}`

	rec := serve(OnboardingCheckout(svc, nil), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessionId":"cs_test_1"`)
}

func TestOnboardingCheckoutErrors(t *testing.T) {
	body := `{"tenantId":"` + uuid.NewString() + `","plan":"BASIC"}`
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unconfigured", pkgerrors.New(pkgerrors.CodeConfiguration, "payment integration not configured"), http.StatusBadRequest},
		{"already processed", pkgerrors.New(pkgerrors.CodeStateConflict, "tenant already processed"), http.StatusBadRequest},
		{"gateway", pkgerrors.New(pkgerrors.CodeDependency, "create checkout session"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(OnboardingCheckout(&stubOnboardingService{err: tc.err}, nil), body)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	rec := serve(OnboardingCheckout(&stubOnboardingService{}, nil), `{"tenantId":"nope","plan":"BASIC"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
