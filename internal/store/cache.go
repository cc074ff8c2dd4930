package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	scoreKeyPrefix   = "agrocredit:score:"
	matchesKeyPrefix = "agrocredit:matches:"
)

// CachedRepository serves risk score and match reads from Redis, falling back to the
// wrapped Repository on a miss. Writes go to the wrapped Repository first and then
// overwrite the affected key with the new value. Fills after a miss use SET NX, so a
// reader holding a superseded value never replaces what a write stored.
type CachedRepository struct {
	Repository
	rdb redis.Cmdable
	ttl time.Duration
	log logger.Logger
}

var _ Repository = (*CachedRepository)(nil)

func NewCachedRepository(next Repository, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{Repository: next, rdb: rdb, ttl: ttl, log: log}
}

func ScoreKey(operationID string) string   { return scoreKeyPrefix + operationID }
func MatchesKey(operationID string) string { return matchesKeyPrefix + operationID }

func (c *CachedRepository) GetRiskScore(ctx context.Context, operationID string) (*models.RiskScore, error) {
	key := ScoreKey(operationID)

	var cached models.RiskScore
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	score, err := c.Repository.GetRiskScore(ctx, operationID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, score)
	return score, nil
}

func (c *CachedRepository) GetMatchResults(ctx context.Context, operationID string) ([]models.MatchResult, error) {
	key := MatchesKey(operationID)

	var cached []models.MatchResult
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	results, err := c.Repository.GetMatchResults(ctx, operationID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, results)
	return results, nil
}

func (c *CachedRepository) ReplaceRiskScore(ctx context.Context, score *models.RiskScore) error {
	if err := c.Repository.ReplaceRiskScore(ctx, score); err != nil {
		return err
	}
	return c.refresh(ctx, ScoreKey(score.OperationID), score)
}

func (c *CachedRepository) ReplaceMatchResults(ctx context.Context, operationID string, results []models.MatchResult) error {
	if err := c.Repository.ReplaceMatchResults(ctx, operationID, results); err != nil {
		return err
	}
	// cache what GetMatchResults would return: a non-nil slice ordered by rank
	cached := append([]models.MatchResult{}, results...)
	sort.SliceStable(cached, func(i, j int) bool { return cached[i].Rank < cached[j].Rank })
	return c.refresh(ctx, MatchesKey(operationID), cached)
}

// load reports whether key held a decodable value. Redis errors are logged and treated as a miss.
func (c *CachedRepository) load(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.log.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("cache entry corrupt", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

// fill caches a value read from the store unless a write already cached a newer one.
func (c *CachedRepository) fill(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.SetNX(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// ErrCacheInvalidation wraps a failed cache update after a successful write.
var ErrCacheInvalidation = errors.New("cache invalidation failed")

// refresh stores the value just written. If that fails the key is dropped so the next
// read goes to the store; the error is returned either way.
func (c *CachedRepository) refresh(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err == nil {
		err = c.rdb.Set(ctx, key, raw, c.ttl).Err()
		if err == nil {
			return nil
		}
	}
	if delErr := c.rdb.Del(ctx, key).Err(); delErr != nil {
		c.log.Warn("cache delete failed", map[string]interface{}{"key": key, "error": delErr.Error()})
	}
	return fmt.Errorf("%w: %s: %v", ErrCacheInvalidation, key, err)
}
