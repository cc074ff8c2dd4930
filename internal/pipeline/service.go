// Package pipeline runs the scoring and matching stages against the persistence gateway.
package pipeline

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"time"

	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/common/metrics"
	"agrocredit-workers/internal/common/observability"
	"agrocredit-workers/internal/events"
	"agrocredit-workers/internal/matching"
	"agrocredit-workers/internal/models"
	"agrocredit-workers/internal/scoring"
	"agrocredit-workers/internal/search"
	"agrocredit-workers/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Runner is the operation surface shared by the HTTP API and the job workers.
type Runner interface {
	CalculateScore(ctx context.Context, operationID string) (*models.RiskScore, error)
	GetScore(ctx context.Context, operationID string) (*models.RiskScore, error)
	RunMatch(ctx context.Context, operationID string) (*models.MatchRun, error)
	GetMatches(ctx context.Context, operationID string) ([]models.MatchResult, error)
}

type Service struct {
	repo      store.Repository
	scoring   *scoring.Engine
	matching  *matching.Engine
	publisher events.Publisher
	indexer   search.Indexer
	obs       *observability.Observability
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

var _ Runner = (*Service)(nil)

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIndexer(i search.Indexer) Option {
	return func(s *Service) { s.indexer = i }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(repo store.Repository, scoringEngine *scoring.Engine, matchingEngine *matching.Engine, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		scoring:   scoringEngine,
		matching:  matchingEngine,
		publisher: events.NoopPublisher{},
		indexer:   search.NoopIndexer{},
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateScore scores the operation's applicant, replaces any previous score and moves
// the operation to SCORING.
func (s *Service) CalculateScore(ctx context.Context, operationID string) (score *models.RiskScore, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "pipeline.CalculateScore", attribute.String("operation.id", operationID))
	defer func() { s.finish(ctx, span, "scoring", start, err) }()

	op, err := s.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}

	in, ok := scoring.InputFromOperation(op)
	if !ok {
		return nil, errors.NewFinancialProfileMissingError(operationID)
	}

	score = s.scoring.Evaluate(in, s.now())
	score.ID = s.newID()
	span.SetAttributes(
		attribute.Int("score.total", score.TotalScore),
		attribute.String("score.profile", string(score.Profile)),
	)

	if err := s.repo.ReplaceRiskScore(ctx, score); err != nil {
		return nil, s.persistError(operationID, "risk score", err)
	}
	metrics.RiskScoresTotal.WithLabelValues(string(score.Profile)).Inc()

	s.log.Info("risk score calculated", map[string]interface{}{
		"operationId": operationID,
		"totalScore":  score.TotalScore,
		"riskProfile": string(score.Profile),
	})

	s.publish(ctx, events.NewRiskScoreCalculated(score))
	return score, nil
}

// GetScore returns the persisted score. Expired is set when the validity window has passed.
func (s *Service) GetScore(ctx context.Context, operationID string) (*models.RiskScore, error) {
	score, err := s.repo.GetRiskScore(ctx, operationID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewRiskScoreNotFoundError(operationID)
	}
	if err != nil {
		return nil, queryError("GetRiskScore", err)
	}
	score.Expired = score.IsExpired(s.now())
	return score, nil
}

// RunMatch ranks every active partner against the operation's persisted score, replaces the
// previous match set and moves the operation to MATCHING.
func (s *Service) RunMatch(ctx context.Context, operationID string) (run *models.MatchRun, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "pipeline.RunMatch", attribute.String("operation.id", operationID))
	defer func() { s.finish(ctx, span, "matching", start, err) }()

	op, err := s.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}

	score, err := s.repo.GetRiskScore(ctx, operationID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewRiskScoreMissingError(operationID)
	}
	if err != nil {
		return nil, queryError("GetRiskScore", err)
	}

	now := s.now()
	if score.IsExpired(now) {
		s.log.Warn("matching against an expired risk score", map[string]interface{}{
			"operationId": operationID,
			"validUntil":  score.ValidUntil,
		})
	}

	partners, err := s.repo.ListActivePartners(ctx)
	if err != nil {
		return nil, queryError("ListActivePartners", err)
	}

	results := s.matching.Rank(op, score.TotalScore, partners, now)
	for i := range results {
		results[i].ID = s.newID()
	}

	if err := s.repo.ReplaceMatchResults(ctx, operationID, results); err != nil {
		return nil, s.persistError(operationID, "match results", err)
	}

	run = &models.MatchRun{
		OperationID:   operationID,
		TotalPartners: countActive(partners),
		Matches:       results,
	}
	metrics.PartnerMatches.Observe(float64(len(results)))
	span.SetAttributes(
		attribute.Int("match.partners", run.TotalPartners),
		attribute.Int("match.count", len(results)),
	)

	s.log.Info("partner match completed", map[string]interface{}{
		"operationId":   operationID,
		"totalPartners": run.TotalPartners,
		"matches":       len(results),
	})

	if err := s.indexer.IndexMatches(ctx, run); err != nil {
		s.log.Warn("match indexing failed", map[string]interface{}{
			"operationId": operationID,
			"error":       err.Error(),
		})
	}
	s.publish(ctx, events.NewPartnerMatchCompleted(run, now))
	return run, nil
}

// GetMatches returns the persisted match set ordered by rank.
func (s *Service) GetMatches(ctx context.Context, operationID string) ([]models.MatchResult, error) {
	results, err := s.repo.GetMatchResults(ctx, operationID)
	if err != nil {
		return nil, queryError("GetMatchResults", err)
	}
	return results, nil
}

func (s *Service) loadOperation(ctx context.Context, operationID string) (*models.CreditOperation, error) {
	op, err := s.repo.GetOperationWithProfile(ctx, operationID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewOperationNotFoundError(operationID)
	}
	if err != nil {
		return nil, queryError("GetOperationWithProfile", err)
	}
	return op, nil
}

func (s *Service) persistError(operationID, what string, err error) error {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NewOperationNotFoundError(operationID)
	case stderrors.Is(err, store.ErrCacheInvalidation):
		return errors.NewCacheFailedError(err)
	default:
		return errors.NewPersistFailedError(what, err)
	}
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("event publish failed", map[string]interface{}{
			"operationId": evt.OperationID,
			"eventType":   evt.Type,
			"error":       err.Error(),
		})
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if stdErr, ok := errors.AsStandardError(err); ok {
			outcome = string(stdErr.Code)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.obs.RecordStage(ctx, stage, outcome, time.Since(start))
	span.End()
}

func queryError(queryType string, err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(queryType, err)
	case stderrors.Is(err, driver.ErrBadConn), stderrors.Is(err, sql.ErrConnDone):
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
}

func countActive(partners []models.PartnerInstitution) int {
	n := 0
	for _, p := range partners {
		if p.Active {
			n++
		}
	}
	return n
}
