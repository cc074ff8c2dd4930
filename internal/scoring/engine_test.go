// internal/scoring/engine_test.go
package scoring

import (
	"testing"
	"time"

	"agrocredit-workers/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strongApplicant() Input {
	return Input{
		OperationID:      "op-1",
		RequestedAmount:  d(1_000_000),
		GuaranteeValue:   d(1_500_000),
		YearsInOperation: 10,
		HasInsurance:     true,
		Tier:             models.ApplicantTierC,
		Financial: models.FinancialProfile{
			AnnualRevenue: d(5_000_000),
			TotalDebt:     d(1_000_000),
			CashFlowMonthly: []decimal.Decimal{
				d(220_000), d(250_000), d(235_000),
			},
			CreditHistoryYears: 8,
		},
	}
}

func TestWeights_SumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
}

func TestEngine_Evaluate_ConservativeScenario(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	score := engine.Evaluate(strongApplicant(), fixedNow)

	assert.Equal(t, 90, score.TotalScore)
	assert.GreaterOrEqual(t, score.TotalScore, 70)
	assert.Equal(t, models.RiskProfileConservative, score.Profile)
	assert.Equal(t, "op-1", score.OperationID)
	assert.Equal(t, fixedNow.Add(90*24*time.Hour), score.ValidUntil)

	names := make([]string, 0, len(score.Factors))
	for _, f := range score.Factors {
		names = append(names, f.Name)
		assert.GreaterOrEqual(t, f.Value, 0.0)
		assert.LessOrEqual(t, f.Value, 100.0)
	}
	assert.Equal(t, []string{
		FactorRevenue, FactorProductionHistory, FactorGuarantee, FactorDebtRatio,
		FactorCashFlow, FactorCreditHistory, FactorInsurance,
	}, names)
	assert.InDelta(t, 60.0, score.Factors[3].Value, 1e-9)
}

func TestEngine_Evaluate_IsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	first := engine.Evaluate(strongApplicant(), fixedNow)
	second := engine.Evaluate(strongApplicant(), fixedNow)

	assert.Equal(t, first, second)
}

func TestEngine_Evaluate_ZeroRevenueGuardsDebtRatio(t *testing.T) {
	in := Input{
		RequestedAmount: d(100_000),
		Tier:            models.ApplicantTierA,
		Financial: models.FinancialProfile{
			AnnualRevenue: d(0),
			TotalDebt:     d(250_000),
		},
	}

	score := NewEngine(DefaultWeights()).Evaluate(in, fixedNow)

	// revenue 20*.20 + debt ratio 100*.15
	assert.Equal(t, 19, score.TotalScore)
	assert.Equal(t, models.RiskProfileStructured, score.Profile)
}

func TestEngine_Evaluate_ScoreBounds(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	worst := engine.Evaluate(Input{
		RequestedAmount: d(1),
		Financial: models.FinancialProfile{
			AnnualRevenue:      d(1),
			TotalDebt:          d(1_000),
			HasNegativeRecords: true,
		},
	}, fixedNow)
	best := engine.Evaluate(Input{
		RequestedAmount:  d(1),
		GuaranteeValue:   d(10),
		YearsInOperation: 40,
		HasInsurance:     true,
		Financial: models.FinancialProfile{
			AnnualRevenue:      d(100_000_000),
			CashFlowMonthly:    []decimal.Decimal{d(1_000)},
			CreditHistoryYears: 30,
		},
	}, fixedNow)

	assert.Equal(t, 4, worst.TotalScore)
	assert.Equal(t, 100, best.TotalScore)
}

func TestEngine_AlternateWeights(t *testing.T) {
	engine := NewEngine(Weights{Insurance: 1})

	score := engine.Evaluate(Input{HasInsurance: true}, fixedNow)

	assert.Equal(t, 100, score.TotalScore)
}

func TestEngine_WithValidity(t *testing.T) {
	engine := NewEngine(DefaultWeights(), WithValidity(24*time.Hour))

	score := engine.Evaluate(strongApplicant(), fixedNow)

	assert.Equal(t, fixedNow.Add(24*time.Hour), score.ValidUntil)
	assert.False(t, score.IsExpired(fixedNow.Add(time.Hour)))
	assert.True(t, score.IsExpired(fixedNow.Add(25*time.Hour)))
}

func TestProfileFor_Boundaries(t *testing.T) {
	tests := []struct {
		total int
		want  models.RiskProfile
	}{
		{0, models.RiskProfileStructured},
		{39, models.RiskProfileStructured},
		{40, models.RiskProfileModerate},
		{69, models.RiskProfileModerate},
		{70, models.RiskProfileConservative},
		{100, models.RiskProfileConservative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProfileFor(tt.total), "total %d", tt.total)
	}
}

func TestInputFromOperation(t *testing.T) {
	op := &models.CreditOperation{
		ID:              "op-9",
		RequestedAmount: d(200_000),
		Applicant: &models.ApplicantProfile{
			YearsInOperation: 4,
			Tier:             models.ApplicantTierB,
			Financial: &models.FinancialProfile{
				AnnualRevenue:  d(800_000),
				GuaranteeValue: d(50_000),
			},
		},
	}

	in, ok := InputFromOperation(op)
	require.True(t, ok)
	assert.Equal(t, "op-9", in.OperationID)
	assert.True(t, in.GuaranteeValue.Equal(d(50_000)))

	op.GuaranteeValue = d(120_000)
	in, _ = InputFromOperation(op)
	assert.True(t, in.GuaranteeValue.Equal(d(120_000)))

	op.Applicant.Financial = nil
	_, ok = InputFromOperation(op)
	assert.False(t, ok)
}
