package enums

import (
	"fmt"
	"strings"
)

// TenantStatus tracks the activation lifecycle of a workshop account.
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "PENDING"
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusCancelled TenantStatus = "CANCELLED"
)

var validTenantStatuses = []TenantStatus{
	TenantStatusPending,
	TenantStatusActive,
	TenantStatusSuspended,
	TenantStatusCancelled,
}

// tenantTransitions lists the moves webhook-driven code may perform.
// Re-activation of SUSPENDED or CANCELLED tenants is handled elsewhere.
var tenantTransitions = map[TenantStatus][]TenantStatus{
	TenantStatusPending:   {TenantStatusActive, TenantStatusCancelled},
	TenantStatusActive:    {TenantStatusSuspended, TenantStatusCancelled},
	TenantStatusSuspended: {TenantStatusCancelled},
}

// String implements fmt.Stringer.
func (s TenantStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s TenantStatus) IsValid() bool {
	for _, candidate := range validTenantStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this state.
func (s TenantStatus) IsTerminal() bool {
	return s == TenantStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	for _, candidate := range tenantTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseTenantStatus converts raw input into a TenantStatus.
func ParseTenantStatus(value string) (TenantStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validTenantStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tenant status %q", value)
}
