// internal/scoring/factors_test.go
package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRevenueFactor_Bands(t *testing.T) {
	tests := []struct {
		name    string
		revenue decimal.Decimal
		want    float64
	}{
		{"zero revenue", d(0), 20},
		{"just below 100k", d(99_999), 20},
		{"exactly 100k", d(100_000), 40},
		{"exactly 500k", d(500_000), 60},
		{"just below 5M", decimal.RequireFromString("4999999.99"), 60},
		{"exactly 5M", d(5_000_000), 80},
		{"exactly 50M", d(50_000_000), 100},
		{"above 50M", d(900_000_000), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RevenueFactor(tt.revenue))
		})
	}
}

func TestProductionHistoryFactor(t *testing.T) {
	assert.Equal(t, 0.0, ProductionHistoryFactor(0))
	assert.Equal(t, 70.0, ProductionHistoryFactor(7))
	assert.Equal(t, 100.0, ProductionHistoryFactor(10))
	assert.Equal(t, 100.0, ProductionHistoryFactor(35))
}

func TestGuaranteeFactor(t *testing.T) {
	tests := []struct {
		name      string
		guarantee decimal.Decimal
		requested decimal.Decimal
		want      float64
	}{
		{"no guarantee", d(0), d(1_000_000), 0},
		{"half coverage", d(500_000), d(1_000_000), 50},
		{"full coverage", d(1_000_000), d(1_000_000), 100},
		{"over coverage capped", d(1_500_000), d(1_000_000), 100},
		{"zero request with guarantee", d(10), d(0), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GuaranteeFactor(tt.guarantee, tt.requested), 1e-9)
		})
	}
}

func TestDebtRatioFactor(t *testing.T) {
	assert.Equal(t, 100.0, DebtRatioFactor(0))
	assert.InDelta(t, 60.0, DebtRatioFactor(0.2), 1e-9)
	assert.Equal(t, 0.0, DebtRatioFactor(0.5))
	assert.Equal(t, 0.0, DebtRatioFactor(3))
}

func TestCashFlowFactor(t *testing.T) {
	tests := []struct {
		name      string
		monthly   []decimal.Decimal
		requested decimal.Decimal
		want      float64
	}{
		{"empty series", nil, d(1_200_000), 0},
		{"negative average", []decimal.Decimal{d(-10), d(5)}, d(1_200_000), 0},
		{"zero average", []decimal.Decimal{d(10), d(-10)}, d(1_200_000), 0},
		{"half of monthly need", []decimal.Decimal{d(50_000), d(50_000)}, d(1_200_000), 50},
		{"above monthly need capped", []decimal.Decimal{d(235_000)}, d(1_000_000), 100},
		{"zero request with positive flow", []decimal.Decimal{d(1)}, d(0), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CashFlowFactor(tt.monthly, tt.requested), 1e-9)
		})
	}
}

func TestCreditHistoryFactor(t *testing.T) {
	assert.Equal(t, 0.0, CreditHistoryFactor(0, false))
	assert.Equal(t, 45.0, CreditHistoryFactor(3, false))
	assert.Equal(t, 100.0, CreditHistoryFactor(8, false))
	assert.Equal(t, 70.0, CreditHistoryFactor(8, true))
	assert.Equal(t, 0.0, CreditHistoryFactor(1, true))
}

func TestInsuranceFactor(t *testing.T) {
	assert.Equal(t, 100.0, InsuranceFactor(true))
	assert.Equal(t, 0.0, InsuranceFactor(false))
}
