package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agrocredit-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSPublisher_RiskScoreCalculated(t *testing.T) {
	client := &fakeSNS{}
	pub := NewSNSPublisherWithClient(client, "arn:aws:sns:us-east-1:123:agrocredit")
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), NewRiskScoreCalculated(&models.RiskScore{
		ID: "rs-1", OperationID: "op-1", TotalScore: 90,
		Profile: models.RiskProfileConservative, CreatedAt: created, ValidUntil: created.AddDate(0, 0, 90),
	}))
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:agrocredit", aws.ToString(in.TopicArn))
	assert.Equal(t, TypeRiskScoreCalculated, aws.ToString(in.MessageAttributes["eventType"].StringValue))
	assert.Equal(t, "op-1", aws.ToString(in.MessageAttributes["operationId"].StringValue))

	var body struct {
		Type    string `json:"type"`
		Payload struct {
			TotalScore  int    `json:"totalScore"`
			RiskProfile string `json:"riskProfile"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &body))
	assert.Equal(t, TypeRiskScoreCalculated, body.Type)
	assert.Equal(t, 90, body.Payload.TotalScore)
	assert.Equal(t, "CONSERVATIVE", body.Payload.RiskProfile)
}

func TestSNSPublisher_Error(t *testing.T) {
	client := &fakeSNS{err: errors.New("throttled")}
	pub := NewSNSPublisherWithClient(client, "arn")

	err := pub.Publish(context.Background(), NewPartnerMatchCompleted(&models.MatchRun{OperationID: "op-1"}, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypePartnerMatchCompleted)
}

func TestNewPartnerMatchCompleted_TopPartner(t *testing.T) {
	run := &models.MatchRun{
		OperationID:   "op-1",
		TotalPartners: 4,
		Matches: []models.MatchResult{
			{PartnerID: "p-9", Score: 91, Rank: 1},
			{PartnerID: "p-2", Score: 60, Rank: 2},
		},
	}

	evt := NewPartnerMatchCompleted(run, time.Now())
	payload, ok := evt.Payload.(PartnerMatchCompleted)
	require.True(t, ok)

	assert.Equal(t, 4, payload.TotalPartners)
	assert.Equal(t, 2, payload.MatchCount)
	assert.Equal(t, "p-9", payload.TopPartnerID)
	assert.Equal(t, 91, payload.TopScore)
}
