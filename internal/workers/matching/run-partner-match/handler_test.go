package runpartnermatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

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
		ElementId:          "Activity_RunPartnerMatch",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

type fixture struct {
	mem     *store.MemoryStore
	svc     *pipeline.Service
	handler *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := decimal.NewFromInt
	mem := store.NewMemoryStore()
	mem.PutOperation(&models.CreditOperation{
		ID:              "op-1",
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
	mem.PutPartner(models.PartnerInstitution{ID: "p-1", Name: "Open Bank", Type: models.PartnerTypeBank, Active: true, CreatedAt: base})
	mem.PutPartner(models.PartnerInstitution{
		ID:              "p-2",
		Name:            "Regional Coop",
		Type:            models.PartnerTypeCooperative,
		Active:          true,
		CreatedAt:       base.Add(time.Minute),
		AcceptedRegions: []string{"RS"},
	})

	svc := pipeline.NewService(mem,
		scoring.NewEngine(scoring.DefaultWeights()),
		matching.NewEngine(matching.DefaultWeights()),
		logger.NewTestLogger(t))

	h, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig(), Runner: svc, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return &fixture{mem: mem, svc: svc, handler: h}
}

func TestHandler_Execute_RequiresScore(t *testing.T) {
	f := newFixture(t)

	_, err := f.handler.Execute(context.Background(), &Input{OperationID: "op-1"})
	require.Error(t, err)

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "RISK_SCORE_MISSING", bpmn.Code)
	assert.False(t, bpmn.Retryable)
}

func TestHandler_Execute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CalculateScore(ctx, "op-1")
	require.NoError(t, err)

	output, err := f.handler.Execute(ctx, &Input{OperationID: "op-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, output.TotalPartners)
	require.Len(t, output.Matches, 2)
	assert.Equal(t, "p-1", output.Matches[0].PartnerID)
	assert.Equal(t, 1, output.Matches[0].Rank)
	assert.Equal(t, 100, output.Matches[0].MatchScore)
	assert.Equal(t, 85, output.Matches[1].MatchScore)

	vars := outputVariables(output)
	assert.Equal(t, 2, vars["matchCount"])
	assert.Equal(t, "p-1", vars["topPartnerId"])

	op, err := f.mem.GetOperationWithProfile(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusMatching, op.Status)
}

func TestOutputVariables_NoMatches(t *testing.T) {
	vars := outputVariables(&Output{OperationID: "op-1", TotalPartners: 4, Matches: []MatchSummary{}})

	assert.Equal(t, 0, vars["matchCount"])
	assert.Equal(t, "", vars["topPartnerId"])
	assert.Equal(t, 4, vars["totalPartners"])
}

func TestHandler_ParseInput(t *testing.T) {
	f := newFixture(t)

	input, err := f.handler.parseInput(createMockJob(1, map[string]interface{}{"operationId": "op-1"}))
	require.NoError(t, err)
	assert.Equal(t, "op-1", input.OperationID)

	_, err = f.handler.parseInput(createMockJob(2, map[string]interface{}{"operationId": 7}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}
