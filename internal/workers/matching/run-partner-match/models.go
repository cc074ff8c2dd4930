// internal/workers/matching/run-partner-match/models.go
package runpartnermatch

import "agrocredit-workers/internal/models"

type Input struct {
	OperationID string `json:"operationId"`
}

// MatchSummary is the compact per-partner view placed into process variables.
type MatchSummary struct {
	PartnerID   string             `json:"partnerId"`
	PartnerName string             `json:"partnerName"`
	PartnerType models.PartnerType `json:"partnerType"`
	MatchScore  int                `json:"matchScore"`
	Rank        int                `json:"rank"`
}

type Output struct {
	OperationID   string         `json:"operationId"`
	TotalPartners int            `json:"totalPartners"`
	Matches       []MatchSummary `json:"matches"`
}

func newOutput(run *models.MatchRun) *Output {
	out := &Output{
		OperationID:   run.OperationID,
		TotalPartners: run.TotalPartners,
		Matches:       make([]MatchSummary, 0, len(run.Matches)),
	}
	for _, m := range run.Matches {
		out.Matches = append(out.Matches, MatchSummary{
			PartnerID:   m.PartnerID,
			PartnerName: m.PartnerName,
			PartnerType: m.PartnerType,
			MatchScore:  m.Score,
			Rank:        m.Rank,
		})
	}
	return out
}
