// internal/workers/scoring/calculate-risk-score/models.go
package calculateriskscore

import (
	"time"

	"agrocredit-workers/internal/models"
)

type Input struct {
	OperationID string `json:"operationId"`
}

type Output struct {
	RiskScoreID string                  `json:"riskScoreId"`
	TotalScore  int                     `json:"totalScore"`
	RiskProfile models.RiskProfile      `json:"riskProfile"`
	ValidUntil  time.Time               `json:"validUntil"`
	Eligibility []models.EligibilityRow `json:"eligibility"`
}

func newOutput(score *models.RiskScore) *Output {
	return &Output{
		RiskScoreID: score.ID,
		TotalScore:  score.TotalScore,
		RiskProfile: score.Profile,
		ValidUntil:  score.ValidUntil,
		Eligibility: score.Eligibility[:],
	}
}

// eligiblePartnerTypes lists the partner types the BPMN gateway can route on.
func (o *Output) eligiblePartnerTypes() []string {
	types := make([]string, 0, len(o.Eligibility))
	for _, row := range o.Eligibility {
		if row.Eligible {
			types = append(types, string(row.PartnerType))
		}
	}
	return types
}
