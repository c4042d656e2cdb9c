package enums

import (
	"fmt"
	"strings"
)

// BillingCycle is how often a subscription is charged.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleAnnual  BillingCycle = "ANNUAL"
)

var validBillingCycles = []BillingCycle{
	BillingCycleMonthly,
	BillingCycleAnnual,
}

// String implements fmt.Stringer.
func (c BillingCycle) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == c {
			return true
		}
	}
	return false
}

// Interval maps the cycle to the provider's recurring interval.
func (c BillingCycle) Interval() string {
	if c == BillingCycleAnnual {
		return "year"
	}
	return "month"
}

// ParseBillingCycle converts raw input into a BillingCycle.
func ParseBillingCycle(value string) (BillingCycle, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validBillingCycles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}

// BillingCycleFromInterval maps a provider recurring interval back to a cycle.
func BillingCycleFromInterval(interval string) (BillingCycle, bool) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "year":
		return BillingCycleAnnual, true
	case "month":
		return BillingCycleMonthly, true
	}
	return "", false
}
