// internal/scoring/weights.go
package scoring

// Factor names, in the order they appear on a RiskScore.
const (
	FactorRevenue           = "revenue"
	FactorProductionHistory = "production_history"
	FactorGuarantee         = "guarantee"
	FactorDebtRatio         = "debt_ratio"
	FactorCashFlow          = "cash_flow"
	FactorCreditHistory     = "credit_history"
	FactorInsurance         = "insurance"
)

const (
	defaultRevenueWeight           = 0.20
	defaultProductionHistoryWeight = 0.15
	defaultGuaranteeWeight         = 0.20
	defaultDebtRatioWeight         = 0.15
	defaultCashFlowWeight          = 0.15
	defaultCreditHistoryWeight     = 0.10
	defaultInsuranceWeight         = 0.05
)

// Weights is the table used to combine factor values into a total score.
type Weights struct {
	Revenue           float64
	ProductionHistory float64
	Guarantee         float64
	DebtRatio         float64
	CashFlow          float64
	CreditHistory     float64
	Insurance         float64
}

// DefaultWeights returns the production weight table. It sums to 1.
func DefaultWeights() Weights {
	return Weights{
		Revenue:           defaultRevenueWeight,
		ProductionHistory: defaultProductionHistoryWeight,
		Guarantee:         defaultGuaranteeWeight,
		DebtRatio:         defaultDebtRatioWeight,
		CashFlow:          defaultCashFlowWeight,
		CreditHistory:     defaultCreditHistoryWeight,
		Insurance:         defaultInsuranceWeight,
	}
}

func (w Weights) Sum() float64 {
	return w.Revenue + w.ProductionHistory + w.Guarantee + w.DebtRatio +
		w.CashFlow + w.CreditHistory + w.Insurance
}
