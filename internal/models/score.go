// internal/models/score.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RiskProfile string

const (
	RiskProfileConservative RiskProfile = "CONSERVATIVE"
	RiskProfileModerate     RiskProfile = "MODERATE"
	RiskProfileStructured   RiskProfile = "STRUCTURED"
)

const ScoreFactorCount = 7

type ScoreFactor struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

type EligibilityRow struct {
	PartnerType       PartnerType     `json:"partnerType"`
	Eligible          bool            `json:"eligible"`
	Reason            string          `json:"reason"`
	MaxEligibleAmount decimal.Decimal `json:"maxEligibleAmount"`
}

// RiskScore is immutable once created; recomputing replaces it.
type RiskScore struct {
	ID          string                           `json:"id"`
	OperationID string                           `json:"operationId"`
	TotalScore  int                              `json:"totalScore"`
	Profile     RiskProfile                      `json:"riskProfile"`
	Factors     [ScoreFactorCount]ScoreFactor    `json:"factors"`
	Eligibility [PartnerTypeCount]EligibilityRow `json:"eligibility"`
	CreatedAt   time.Time                        `json:"createdAt"`
	ValidUntil  time.Time                        `json:"validUntil"`
	Expired     bool                             `json:"expired,omitempty"`
}

// EligibilityFor returns the row for a partner type.
func (s *RiskScore) EligibilityFor(t PartnerType) (EligibilityRow, bool) {
	for _, row := range s.Eligibility {
		if row.PartnerType == t {
			return row, true
		}
	}
	return EligibilityRow{}, false
}

func (s *RiskScore) IsExpired(now time.Time) bool {
	return now.After(s.ValidUntil)
}
