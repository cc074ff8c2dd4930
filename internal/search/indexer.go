// Package search indexes ranked partner matches in Elasticsearch for dashboards.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"agrocredit-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

type Indexer interface {
	IndexMatches(ctx context.Context, run *models.MatchRun) error
}

// MatchIndexer replaces the documents of an operation's previous run with the new ranked set.
type MatchIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewMatchIndexer(es *elasticsearch.Client, index string) *MatchIndexer {
	return &MatchIndexer{es: es, index: index}
}

type matchDocument struct {
	models.MatchResult
	TotalPartners int `json:"totalPartners"`
}

func (m *MatchIndexer) IndexMatches(ctx context.Context, run *models.MatchRun) error {
	if err := m.deleteRun(ctx, run.OperationID); err != nil {
		return err
	}
	if len(run.Matches) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, match := range run.Matches {
		meta := map[string]map[string]string{"index": {"_id": match.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(matchDocument{MatchResult: match, TotalPartners: run.TotalPartners}); err != nil {
			return fmt.Errorf("encode match %s: %w", match.ID, err)
		}
	}

	res, err := m.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		m.es.Bulk.WithIndex(m.index),
		m.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk index matches: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index matches: %s", res.Status())
	}

	var body struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if body.Errors {
		return fmt.Errorf("bulk index matches: one or more documents rejected")
	}
	return nil
}

func (m *MatchIndexer) deleteRun(ctx context.Context, operationID string) error {
	query := fmt.Sprintf(`{"query":{"term":{"operationId":%q}}}`, operationID)
	res, err := m.es.DeleteByQuery(
		[]string{m.index},
		strings.NewReader(query),
		m.es.DeleteByQuery.WithContext(ctx),
		m.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("delete previous matches: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	// a missing index just means nothing was indexed yet
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete previous matches: %s", res.Status())
	}
	return nil
}

// NoopIndexer is used when search indexing is disabled.
type NoopIndexer struct{}

func (NoopIndexer) IndexMatches(context.Context, *models.MatchRun) error { return nil }
