// internal/scoring/factors.go
package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	revenueBand50M  = decimal.NewFromInt(50_000_000)
	revenueBand5M   = decimal.NewFromInt(5_000_000)
	revenueBand500K = decimal.NewFromInt(500_000)
	revenueBand100K = decimal.NewFromInt(100_000)
	monthsPerYear   = decimal.NewFromInt(12)
)

// RevenueFactor bands annual revenue. The bands are discrete steps.
func RevenueFactor(annualRevenue decimal.Decimal) float64 {
	switch {
	case annualRevenue.GreaterThanOrEqual(revenueBand50M):
		return 100
	case annualRevenue.GreaterThanOrEqual(revenueBand5M):
		return 80
	case annualRevenue.GreaterThanOrEqual(revenueBand500K):
		return 60
	case annualRevenue.GreaterThanOrEqual(revenueBand100K):
		return 40
	default:
		return 20
	}
}

func ProductionHistoryFactor(yearsInActivity int) float64 {
	return clamp(float64(yearsInActivity) * 10)
}

// GuaranteeFactor is the guarantee coverage of the requested amount, capped
// at 100. A positive guarantee against a non-positive request counts as full
// coverage.
func GuaranteeFactor(guaranteeValue, requestedAmount decimal.Decimal) float64 {
	if guaranteeValue.Sign() <= 0 {
		return 0
	}
	if requestedAmount.Sign() <= 0 {
		return 100
	}
	coverage := guaranteeValue.Div(requestedAmount).InexactFloat64() * 100
	return math.Min(coverage, 100)
}

// DebtRatioFactor reaches zero at a debt-to-revenue ratio of 0.5.
func DebtRatioFactor(debtToRevenueRatio float64) float64 {
	return math.Max(0, 100-debtToRevenueRatio*200)
}

// CashFlowFactor compares the average monthly cash flow with one twelfth of
// the requested amount.
func CashFlowFactor(monthly []decimal.Decimal, requestedAmount decimal.Decimal) float64 {
	if len(monthly) == 0 {
		return 0
	}
	avg := averageCashFlow(monthly)
	if avg.Sign() <= 0 {
		return 0
	}
	if requestedAmount.Sign() <= 0 {
		return 100
	}
	monthlyNeed := requestedAmount.Div(monthsPerYear)
	return math.Min(avg.Div(monthlyNeed).InexactFloat64()*100, 100)
}

func CreditHistoryFactor(creditHistoryYears int, hasNegativeRecords bool) float64 {
	value := math.Min(float64(creditHistoryYears)*15, 100)
	if hasNegativeRecords {
		value -= 30
	}
	return math.Max(0, value)
}

func InsuranceFactor(hasInsurance bool) float64 {
	if hasInsurance {
		return 100
	}
	return 0
}

func averageCashFlow(monthly []decimal.Decimal) decimal.Decimal {
	if len(monthly) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, monthly...).Div(decimal.NewFromInt(int64(len(monthly))))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
