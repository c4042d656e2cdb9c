package enums

import (
	"fmt"
	"strings"
)

// Plan is the commercial tier a workshop subscribes to.
type Plan string

const (
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

var validPlans = []Plan{
	PlanStarter,
	PlanProfessional,
	PlanEnterprise,
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p Plan) IsValid() bool {
	for _, candidate := range validPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// DisplayName returns the customer-facing plan label.
func (p Plan) DisplayName() string {
	switch p {
	case PlanStarter:
		return "Starter"
	case PlanProfessional:
		return "Professional"
	case PlanEnterprise:
		return "Enterprise"
	}
	return string(p)
}

// ParsePlan converts raw input into a Plan, ignoring case and surrounding spaces.
func ParsePlan(value string) (Plan, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPlans {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}
