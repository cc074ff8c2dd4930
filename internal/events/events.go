// Package events publishes pipeline domain events.
package events

import (
	"context"
	"time"

	"agrocredit-workers/internal/models"
)

const (
	TypeRiskScoreCalculated   = "risk_score.calculated"
	TypePartnerMatchCompleted = "partner_match.completed"
)

type Event struct {
	Type        string      `json:"type"`
	OperationID string      `json:"operationId"`
	OccurredAt  time.Time   `json:"occurredAt"`
	Payload     interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type RiskScoreCalculated struct {
	RiskScoreID string             `json:"riskScoreId"`
	TotalScore  int                `json:"totalScore"`
	Profile     models.RiskProfile `json:"riskProfile"`
	ValidUntil  time.Time          `json:"validUntil"`
}

type PartnerMatchCompleted struct {
	TotalPartners int    `json:"totalPartners"`
	MatchCount    int    `json:"matchCount"`
	TopPartnerID  string `json:"topPartnerId,omitempty"`
	TopScore      int    `json:"topScore,omitempty"`
}

func NewRiskScoreCalculated(score *models.RiskScore) Event {
	return Event{
		Type:        TypeRiskScoreCalculated,
		OperationID: score.OperationID,
		OccurredAt:  score.CreatedAt,
		Payload: RiskScoreCalculated{
			RiskScoreID: score.ID,
			TotalScore:  score.TotalScore,
			Profile:     score.Profile,
			ValidUntil:  score.ValidUntil,
		},
	}
}

func NewPartnerMatchCompleted(run *models.MatchRun, at time.Time) Event {
	payload := PartnerMatchCompleted{
		TotalPartners: run.TotalPartners,
		MatchCount:    len(run.Matches),
	}
	if len(run.Matches) > 0 {
		payload.TopPartnerID = run.Matches[0].PartnerID
		payload.TopScore = run.Matches[0].Score
	}
	return Event{
		Type:        TypePartnerMatchCompleted,
		OperationID: run.OperationID,
		OccurredAt:  at,
		Payload:     payload,
	}
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
