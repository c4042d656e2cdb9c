package onboarding

import (
	"strings"

	"github.com/google/uuid"
)

// RegisterRequest is the public sign-up payload.
type RegisterRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	DocumentType string `json:"documentType" validate:"required"`
	Document     string `json:"document" validate:"required"`
	Subdomain    string `json:"subdomain" validate:"required,subdomain"`
	Plan         string `json:"plan" validate:"required"`
	Password     string `json:"password,omitempty"`
}

// RegisterResult identifies the pending tenant. Existing is set when an
// earlier registration for the same document was returned.
type RegisterResult struct {
	TenantID  uuid.UUID `json:"tenantId"`
	Subdomain string    `json:"subdomain"`
	Existing  bool      `json:"-"`
}

// CheckStatusRequest looks up a registration by document and/or admin email.
type CheckStatusRequest struct {
	Document string `json:"document"`
	Email    string `json:"email"`
}

// CheckStatusResult reports whether a tenant exists for the lookup.
type CheckStatusResult struct {
	Exists    bool       `json:"exists"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty"`
	Subdomain *string    `json:"subdomain,omitempty"`
	Status    *string    `json:"status,omitempty"`
}

// CheckoutRequest starts a hosted checkout for a pending tenant.
type CheckoutRequest struct {
	TenantID     string `json:"tenantId" validate:"required,uuid"`
	Plan         string `json:"plan" validate:"required"`
	BillingCycle string `json:"billingCycle,omitempty"`
}

// CheckoutResult is the redirect returned to the client.
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func normalizeDocument(document string) string {
	return strings.ToLower(strings.TrimSpace(document))
}

func normalizeSubdomain(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}
