// internal/scoring/engine.go
package scoring

import (
	"fmt"
	"math"
	"time"

	"agrocredit-workers/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultValidity is how long a risk score stays valid after it is computed.
const DefaultValidity = 90 * 24 * time.Hour

// Input carries the applicant and operation attributes the engine reads.
type Input struct {
	OperationID      string
	RequestedAmount  decimal.Decimal
	GuaranteeValue   decimal.Decimal
	YearsInOperation int
	HasInsurance     bool
	Tier             models.ApplicantTier
	Financial        models.FinancialProfile
}

// InputFromOperation builds an Input from an operation loaded with its
// applicant and financial profile. It returns false when the financial
// profile is missing. The operation's guarantee value takes precedence; the
// profile's declared guarantee is used when the operation carries none.
func InputFromOperation(op *models.CreditOperation) (Input, bool) {
	if op == nil || op.Applicant == nil || op.Applicant.Financial == nil {
		return Input{}, false
	}
	guarantee := op.GuaranteeValue
	if guarantee.Sign() <= 0 {
		guarantee = op.Applicant.Financial.GuaranteeValue
	}
	return Input{
		OperationID:      op.ID,
		RequestedAmount:  op.RequestedAmount,
		GuaranteeValue:   guarantee,
		YearsInOperation: op.Applicant.YearsInOperation,
		HasInsurance:     op.Applicant.HasInsurance,
		Tier:             op.Applicant.Tier,
		Financial:        *op.Applicant.Financial,
	}, true
}

// Engine turns an Input into a RiskScore. It holds no mutable state.
type Engine struct {
	weights  Weights
	validity time.Duration
}

type Option func(*Engine)

func WithValidity(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.validity = d
		}
	}
}

func NewEngine(weights Weights, opts ...Option) *Engine {
	e := &Engine{weights: weights, validity: DefaultValidity}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// Evaluate scores the input as of now. The returned score has no ID.
func (e *Engine) Evaluate(in Input, now time.Time) *models.RiskScore {
	factors := e.Factors(in)

	total := Total(factors)
	return &models.RiskScore{
		OperationID: in.OperationID,
		TotalScore:  total,
		Profile:     ProfileFor(total),
		Factors:     factors,
		Eligibility: Eligibility(total, in.Tier, in.RequestedAmount),
		CreatedAt:   now,
		ValidUntil:  now.Add(e.validity),
	}
}

// Factors computes the seven weighted factors in display order.
func (e *Engine) Factors(in Input) [models.ScoreFactorCount]models.ScoreFactor {
	fin := in.Financial
	ratio := fin.DebtToRevenueRatio()
	avg := averageCashFlow(fin.CashFlowMonthly)

	return [models.ScoreFactorCount]models.ScoreFactor{
		{
			Name:        FactorRevenue,
			Weight:      e.weights.Revenue,
			Value:       RevenueFactor(fin.AnnualRevenue),
			Description: fmt.Sprintf("Annual revenue of %s", fin.AnnualRevenue.StringFixed(2)),
		},
		{
			Name:        FactorProductionHistory,
			Weight:      e.weights.ProductionHistory,
			Value:       ProductionHistoryFactor(in.YearsInOperation),
			Description: fmt.Sprintf("%d years in activity", in.YearsInOperation),
		},
		{
			Name:        FactorGuarantee,
			Weight:      e.weights.Guarantee,
			Value:       GuaranteeFactor(in.GuaranteeValue, in.RequestedAmount),
			Description: fmt.Sprintf("Guarantees of %s for %s requested", in.GuaranteeValue.StringFixed(2), in.RequestedAmount.StringFixed(2)),
		},
		{
			Name:        FactorDebtRatio,
			Weight:      e.weights.DebtRatio,
			Value:       DebtRatioFactor(ratio),
			Description: fmt.Sprintf("Debt-to-revenue ratio of %.2f", ratio),
		},
		{
			Name:        FactorCashFlow,
			Weight:      e.weights.CashFlow,
			Value:       CashFlowFactor(fin.CashFlowMonthly, in.RequestedAmount),
			Description: fmt.Sprintf("Average monthly cash flow of %s over %d months", avg.StringFixed(2), len(fin.CashFlowMonthly)),
		},
		{
			Name:        FactorCreditHistory,
			Weight:      e.weights.CreditHistory,
			Value:       CreditHistoryFactor(fin.CreditHistoryYears, fin.HasNegativeRecords),
			Description: creditHistoryDescription(fin.CreditHistoryYears, fin.HasNegativeRecords),
		},
		{
			Name:        FactorInsurance,
			Weight:      e.weights.Insurance,
			Value:       InsuranceFactor(in.HasInsurance),
			Description: insuranceDescription(in.HasInsurance),
		},
	}
}

// Total is the rounded weighted sum of the factor values.
func Total(factors [models.ScoreFactorCount]models.ScoreFactor) int {
	var sum float64
	for _, f := range factors {
		sum += f.Value * f.Weight
	}
	return int(math.Round(sum))
}

func ProfileFor(total int) models.RiskProfile {
	switch {
	case total >= 70:
		return models.RiskProfileConservative
	case total >= 40:
		return models.RiskProfileModerate
	default:
		return models.RiskProfileStructured
	}
}

func creditHistoryDescription(years int, negative bool) string {
	if negative {
		return fmt.Sprintf("%d years of credit history with negative records", years)
	}
	return fmt.Sprintf("%d years of credit history, no negative records", years)
}

func insuranceDescription(insured bool) string {
	if insured {
		return "Rural insurance in place"
	}
	return "No rural insurance"
}
