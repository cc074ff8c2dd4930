// Package store persists credit operations, partners, risk scores and match results.
package store

import (
	"context"
	"errors"

	"agrocredit-workers/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository is the persistence gateway used by the pipeline.
//
// ListActivePartners must order partners by (created_at, id) ascending: match ranking
// breaks ties on that order. ReplaceRiskScore and ReplaceMatchResults swap the previous
// set and move the operation status in one transaction.
type Repository interface {
	GetOperationWithProfile(ctx context.Context, operationID string) (*models.CreditOperation, error)
	ListActivePartners(ctx context.Context) ([]models.PartnerInstitution, error)
	GetRiskScore(ctx context.Context, operationID string) (*models.RiskScore, error)
	ReplaceRiskScore(ctx context.Context, score *models.RiskScore) error
	ReplaceMatchResults(ctx context.Context, operationID string, results []models.MatchResult) error
	GetMatchResults(ctx context.Context, operationID string) ([]models.MatchResult, error)
	UpdateOperationStatus(ctx context.Context, operationID string, status models.OperationStatus) error
}
