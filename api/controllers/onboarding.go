package controllers

import (
	"context"
	"net/http"

	"github.com/oficinaflow/oficinaflow-backend/api/responses"
	"github.com/oficinaflow/oficinaflow-backend/api/validators"
	"github.com/oficinaflow/oficinaflow-backend/internal/onboarding"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

const maxTenantNameLen = 160

// OnboardingService is the registration and checkout surface used by the public endpoints.
type OnboardingService interface {
	Register(ctx context.Context, req onboarding.RegisterRequest) (*onboarding.RegisterResult, error)
	CheckStatus(ctx context.Context, req onboarding.CheckStatusRequest) (*onboarding.CheckStatusResult, error)
	CreateCheckoutSession(ctx context.Context, req onboarding.CheckoutRequest) (*onboarding.CheckoutResult, error)
}

// OnboardingRegister creates a pending tenant, or returns the pending one
// already registered for the same document.
func OnboardingRegister(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		var body onboarding.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Name = validators.SanitizeString(body.Name, maxTenantNameLen)

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Existing && logg != nil {
			ctx := logg.WithTenantID(r.Context(), result.TenantID.String())
			logg.Info(ctx, "returning existing pending registration")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OnboardingCheckStatus reports whether a document or email already has a tenant.
func OnboardingCheckStatus(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		var body onboarding.CheckStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckStatus(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OnboardingCheckout opens a hosted checkout session for a pending tenant.
func OnboardingCheckout(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		var body onboarding.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTenantID(ctx, body.TenantID)
		}
		result, err := svc.CreateCheckoutSession(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
