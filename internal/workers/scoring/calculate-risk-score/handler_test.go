package calculateriskscore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agrocredit-workers/internal/common/config"
	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/matching"
	"agrocredit-workers/internal/models"
	"agrocredit-workers/internal/pipeline"
	"agrocredit-workers/internal/scoring"
	"agrocredit-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "credit-risk-pipeline",
		ElementId:          "Activity_CalculateRiskScore",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, mem *store.MemoryStore) *Handler {
	t.Helper()
	svc := pipeline.NewService(mem,
		scoring.NewEngine(scoring.DefaultWeights()),
		matching.NewEngine(matching.DefaultWeights()),
		logger.NewTestLogger(t))

	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Runner:       svc,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func seedOperation(mem *store.MemoryStore, withProfile bool) {
	d := decimal.NewFromInt
	op := &models.CreditOperation{
		ID:              "op-1",
		RequestedAmount: d(1_000_000),
		GuaranteeValue:  d(1_500_000),
		Applicant: &models.ApplicantProfile{
			ID:               "app-1",
			YearsInOperation: 10,
			HasInsurance:     true,
			Tier:             models.ApplicantTierC,
		},
	}
	if withProfile {
		op.Applicant.Financial = &models.FinancialProfile{
			AnnualRevenue:      d(5_000_000),
			TotalDebt:          d(1_000_000),
			CashFlowMonthly:    []decimal.Decimal{d(220_000), d(250_000), d(235_000)},
			CreditHistoryYears: 8,
		}
	}
	mem.PutOperation(op)
}

func TestNewHandler(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := pipeline.NewService(mem, scoring.NewEngine(scoring.DefaultWeights()), matching.NewEngine(matching.DefaultWeights()), logger.NewNoOpLogger())

	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{name: "defaults", opts: HandlerOptions{Runner: svc, Logger: logger.NewNoOpLogger()}},
		{name: "missing runner", opts: HandlerOptions{Logger: logger.NewNoOpLogger()}, wantErr: "pipeline runner is required"},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{Runner: svc, CustomConfig: &Config{MaxJobsActive: 1, Timeout: -time.Second}},
			wantErr: "timeout must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, MaxJobsActive: 8, Timeout: 12000, MaxRetries: 2},
	}}

	wc := FromAppConfig(cfg)
	assert.Equal(t, 8, wc.MaxJobsActive)
	assert.Equal(t, 12*time.Second, wc.Timeout)
	assert.Equal(t, 2, wc.MaxRetries)
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore())

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{"operationId": "op-1", "other": true}))
	require.NoError(t, err)
	assert.Equal(t, "op-1", input.OperationID)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"operationId": ""}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func TestHandler_Execute(t *testing.T) {
	mem := store.NewMemoryStore()
	seedOperation(mem, true)
	h := newTestHandler(t, mem)

	output, err := h.Execute(context.Background(), &Input{OperationID: "op-1"})
	require.NoError(t, err)

	assert.Equal(t, 90, output.TotalScore)
	assert.Equal(t, models.RiskProfileConservative, output.RiskProfile)
	assert.Len(t, output.Eligibility, models.PartnerTypeCount)

	vars := outputVariables(output)
	assert.Equal(t, "CONSERVATIVE", vars["riskProfile"])
	assert.Equal(t, output.RiskScoreID, vars["riskScoreId"])
	assert.Contains(t, vars["eligiblePartnerTypes"], "FIDC")
	assert.NotContains(t, vars["eligiblePartnerTypes"], "CAPITAL_MARKETS")

	stored, err := mem.GetRiskScore(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, output.RiskScoreID, stored.ID)
}

func TestHandler_Execute_PrerequisitesBecomeBPMNErrors(t *testing.T) {
	mem := store.NewMemoryStore()
	seedOperation(mem, false)
	h := newTestHandler(t, mem)

	_, err := h.Execute(context.Background(), &Input{OperationID: "op-1"})
	require.Error(t, err)

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "FINANCIAL_PROFILE_MISSING", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)

	_, err = h.Execute(context.Background(), &Input{OperationID: "nope"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeOperationNotFound))
}
