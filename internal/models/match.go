// internal/models/match.go
package models

import "time"

const MatchFactorCount = 6

type MatchFactor struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

type MatchResult struct {
	ID          string                        `json:"id"`
	OperationID string                        `json:"operationId"`
	PartnerID   string                        `json:"partnerId"`
	PartnerName string                        `json:"partnerName"`
	PartnerType PartnerType                   `json:"partnerType"`
	Score       int                           `json:"matchScore"`
	Factors     [MatchFactorCount]MatchFactor `json:"factors"`
	Rank        int                           `json:"rank"`
	CreatedAt   time.Time                     `json:"createdAt"`
}

// MatchRun is the outcome of one matching run for an operation.
type MatchRun struct {
	OperationID   string        `json:"operationId"`
	TotalPartners int           `json:"totalPartners"`
	Matches       []MatchResult `json:"matches"`
}
