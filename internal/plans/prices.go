package plans

import (
	"github.com/shopspring/decimal"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

type planPrices struct {
	monthly decimal.Decimal
	annual  decimal.Decimal
}

// Prices are in BRL. Annual is billed once per year.
var priceTable = map[enums.Plan]planPrices{
	enums.PlanStarter: {
		monthly: decimal.RequireFromString("99.00"),
		annual:  decimal.RequireFromString("999.00"),
	},
	enums.PlanProfessional: {
		monthly: decimal.RequireFromString("149.00"),
		annual:  decimal.RequireFromString("1499.00"),
	},
	enums.PlanEnterprise: {
		monthly: decimal.RequireFromString("299.00"),
		annual:  decimal.RequireFromString("2999.00"),
	},
}

// Price returns the amount charged for plan on cycle. Unknown plans cost zero;
// an unknown or empty cycle falls back to the monthly price.
func Price(plan enums.Plan, cycle enums.BillingCycle) decimal.Decimal {
	prices, ok := priceTable[plan]
	if !ok {
		return decimal.Zero
	}
	if cycle == enums.BillingCycleAnnual {
		return prices.annual
	}
	return prices.monthly
}

// PriceCents is Price expressed in the currency's minor unit.
func PriceCents(plan enums.Plan, cycle enums.BillingCycle) int64 {
	return Price(plan, cycle).Shift(2).Round(0).IntPart()
}
