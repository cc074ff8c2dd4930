package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/matching"
	"agrocredit-workers/internal/models"
	"agrocredit-workers/internal/pipeline"
	"agrocredit-workers/internal/scoring"
	"agrocredit-workers/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	opID      = "5b0f7c1e-3d7a-4a53-9f57-3c1f1b9a2e01"
	unknownID = "9d4c2a77-1111-4e0b-8c1a-000000000000"
)

type fakeEnqueuer struct {
	key       int64
	err       error
	gotOpID   string
	gotStage  string
	callCount int
}

func (f *fakeEnqueuer) StartPipeline(_ context.Context, operationID, stage string) (int64, error) {
	f.callCount++
	f.gotOpID = operationID
	f.gotStage = stage
	return f.key, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func seedStore() *store.MemoryStore {
	d := decimal.NewFromInt
	mem := store.NewMemoryStore()
	mem.PutOperation(&models.CreditOperation{
		ID:              opID,
		RequestedAmount: d(1_000_000),
		GuaranteeValue:  d(1_500_000),
		Guarantees:      []string{"land"},
		OperationType:   "WORKING_CAPITAL",
		Applicant: &models.ApplicantProfile{
			ID:               "app-1",
			Region:           "MT",
			Crops:            []string{"soy"},
			YearsInOperation: 10,
			HasInsurance:     true,
			Tier:             models.ApplicantTierC,
			Financial: &models.FinancialProfile{
				AnnualRevenue:      d(5_000_000),
				TotalDebt:          d(1_000_000),
				CashFlowMonthly:    []decimal.Decimal{d(220_000), d(250_000), d(235_000)},
				CreditHistoryYears: 8,
			},
		},
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.PutPartner(models.PartnerInstitution{ID: "p-open", Name: "Open Bank", Type: models.PartnerTypeBank, Active: true, CreatedAt: base})
	mem.PutPartner(models.PartnerInstitution{
		ID:              "p-south",
		Name:            "South Coop",
		Type:            models.PartnerTypeCooperative,
		Active:          true,
		CreatedAt:       base.Add(time.Minute),
		AcceptedRegions: []string{"RS"},
	})
	return mem
}

func setupRouter(t *testing.T, enq Enqueuer, checks map[string]Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := pipeline.NewService(seedStore(),
		scoring.NewEngine(scoring.DefaultWeights()),
		matching.NewEngine(matching.DefaultWeights()),
		logger.NewTestLogger(t))
	return NewRouter(NewHandler(svc, enq, logger.NewTestLogger(t)), checks, logger.NewTestLogger(t))
}

func do(r *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandler_CalculateScore_200(t *testing.T) {
	r := setupRouter(t, nil, nil)

	w, body := do(r, http.MethodPost, "/api/v1/scoring/"+opID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(90), body["totalScore"])
	assert.Equal(t, "CONSERVATIVE", body["riskProfile"])
	assert.Len(t, body["factors"], models.ScoreFactorCount)

	w, body = do(r, http.MethodGet, "/api/v1/scoring/"+opID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, opID, body["operationId"])
	assert.Nil(t, body["expired"])
}

func TestHandler_NotFound(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		wantCode string
	}{
		{"unknown operation", http.MethodPost, "/api/v1/scoring/" + unknownID, "OPERATION_NOT_FOUND"},
		{"score not computed", http.MethodGet, "/api/v1/scoring/" + opID, "RISK_SCORE_NOT_FOUND"},
		{"match without score", http.MethodPost, "/api/v1/matching/" + opID, "RISK_SCORE_MISSING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(t, nil, nil)

			w, body := do(r, tt.method, tt.path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, tt.wantCode, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandler_InvalidOperationID(t *testing.T) {
	r := setupRouter(t, nil, nil)

	for _, path := range []string{"/api/v1/scoring/not-a-uuid", "/api/v1/matching/42"} {
		w, body := do(r, http.MethodPost, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "INVALID_OPERATION_ID", body["error"])
	}
}

func TestHandler_MatchFlow(t *testing.T) {
	r := setupRouter(t, nil, nil)

	w, _ := do(r, http.MethodPost, "/api/v1/scoring/"+opID)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(r, http.MethodPost, "/api/v1/matching/"+opID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), body["totalPartners"])
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 2)
	first := matches[0].(map[string]interface{})
	assert.Equal(t, "p-open", first["partnerId"])
	assert.Equal(t, float64(1), first["rank"])

	w, body = do(r, http.MethodGet, "/api/v1/matching/"+opID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["count"])
}

func TestHandler_GetMatches_EmptyForUnmatchedOperation(t *testing.T) {
	r := setupRouter(t, nil, nil)

	w, body := do(r, http.MethodGet, "/api/v1/matching/"+unknownID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["matches"])
}

func TestHandler_Async(t *testing.T) {
	t.Run("enqueues scoring", func(t *testing.T) {
		enq := &fakeEnqueuer{key: 2251799813685251}
		r := setupRouter(t, enq, nil)

		w, body := do(r, http.MethodPost, "/api/v1/scoring/"+opID+"?async=true")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, float64(2251799813685251), body["processInstanceKey"])
		assert.Equal(t, "scoring", body["stage"])
		assert.Equal(t, opID, enq.gotOpID)

		// nothing was computed synchronously
		w, _ = do(r, http.MethodGet, "/api/v1/scoring/"+opID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("enqueues matching", func(t *testing.T) {
		enq := &fakeEnqueuer{key: 7}
		r := setupRouter(t, enq, nil)

		w, _ := do(r, http.MethodPost, "/api/v1/matching/"+opID+"?async=true")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "matching", enq.gotStage)
	})

	t.Run("not configured", func(t *testing.T) {
		r := setupRouter(t, nil, nil)

		w, body := do(r, http.MethodPost, "/api/v1/scoring/"+opID+"?async=true")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ASYNC_UNAVAILABLE", body["error"])
	})

	t.Run("broker failure", func(t *testing.T) {
		enq := &fakeEnqueuer{err: errors.NewEnqueueFailedError(stderrors.New("unavailable"))}
		r := setupRouter(t, enq, nil)

		w, body := do(r, http.MethodPost, "/api/v1/scoring/"+opID+"?async=true")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ENQUEUE_FAILED", body["error"])
	})
}

type failingRunner struct{ pipeline.Runner }

func (failingRunner) CalculateScore(context.Context, string) (*models.RiskScore, error) {
	return nil, errors.NewQueryExecutionFailedError("GetOperationWithProfile", stderrors.New("connection reset"))
}

func (failingRunner) GetScore(context.Context, string) (*models.RiskScore, error) {
	return nil, stderrors.New("boom")
}

func TestHandler_InfrastructureErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(failingRunner{}, nil, logger.NewTestLogger(t)), nil, nil)

	w, body := do(r, http.MethodPost, "/api/v1/scoring/"+opID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "QUERY_EXECUTION_FAILED", body["error"])

	w, body = do(r, http.MethodGet, "/api/v1/scoring/"+opID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
}

func TestRouter_HealthAndReadiness(t *testing.T) {
	r := setupRouter(t, nil, map[string]Pinger{
		"postgres": fakePinger{},
		"redis":    fakePinger{err: stderrors.New("dial tcp: connection refused")},
	})

	w, body := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	w, body = do(r, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Contains(t, checks["redis"], "connection refused")

	w, _ = do(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agrocredit_http_requests_total")
}
