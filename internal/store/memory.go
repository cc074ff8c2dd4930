package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrocredit-workers/internal/models"
)

// MemoryStore is an in-memory Repository used by tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	operations map[string]*models.CreditOperation
	partners   map[string]models.PartnerInstitution
	scores     map[string]models.RiskScore
	matches    map[string][]models.MatchResult
	now        func() time.Time
}

var _ Repository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		operations: make(map[string]*models.CreditOperation),
		partners:   make(map[string]models.PartnerInstitution),
		scores:     make(map[string]models.RiskScore),
		matches:    make(map[string][]models.MatchResult),
		now:        time.Now,
	}
}

// PutOperation stores a copy of op together with its applicant and financial profile.
func (m *MemoryStore) PutOperation(op *models.CreditOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[op.ID] = op.Clone()
}

func (m *MemoryStore) PutPartner(p models.PartnerInstitution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.AcceptedGuarantees = append([]string(nil), p.AcceptedGuarantees...)
	p.AcceptedRegions = append([]string(nil), p.AcceptedRegions...)
	p.AcceptedCrops = append([]string(nil), p.AcceptedCrops...)
	p.AcceptedOperationTypes = append([]string(nil), p.AcceptedOperationTypes...)
	m.partners[p.ID] = p
}

func (m *MemoryStore) GetOperationWithProfile(_ context.Context, operationID string) (*models.CreditOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, ok := m.operations[operationID]
	if !ok {
		return nil, ErrNotFound
	}
	return op.Clone(), nil
}

func (m *MemoryStore) ListActivePartners(_ context.Context) ([]models.PartnerInstitution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PartnerInstitution, 0, len(m.partners))
	for _, p := range m.partners {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetRiskScore(_ context.Context, operationID string) (*models.RiskScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.scores[operationID]
	if !ok {
		return nil, ErrNotFound
	}
	return &score, nil
}

func (m *MemoryStore) ReplaceRiskScore(_ context.Context, score *models.RiskScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.operations[score.OperationID]
	if !ok {
		return ErrNotFound
	}
	m.scores[score.OperationID] = *score
	m.setStatus(op, models.OperationStatusScoring)
	return nil
}

func (m *MemoryStore) ReplaceMatchResults(_ context.Context, operationID string, results []models.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.operations[operationID]
	if !ok {
		return ErrNotFound
	}
	m.matches[operationID] = append([]models.MatchResult(nil), results...)
	m.setStatus(op, models.OperationStatusMatching)
	return nil
}

func (m *MemoryStore) GetMatchResults(_ context.Context, operationID string) ([]models.MatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]models.MatchResult{}, m.matches[operationID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (m *MemoryStore) UpdateOperationStatus(_ context.Context, operationID string, status models.OperationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.operations[operationID]
	if !ok {
		return ErrNotFound
	}
	m.setStatus(op, status)
	return nil
}

func (m *MemoryStore) setStatus(op *models.CreditOperation, status models.OperationStatus) {
	op.Status = status
	op.UpdatedAt = m.now()
}
