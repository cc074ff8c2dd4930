// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: agrocredit
    user: agro
workers:
  calculate-risk-score:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Scoring.ValidityDays)
	assert.Equal(t, 90*24*time.Hour, cfg.Scoring.Validity())
	assert.Equal(t, 30, cfg.Matching.MinScoreExclusive)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "credit-risk-pipeline", cfg.Camunda.ProcessID)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)

	w := GetWorkerConfig(cfg, "calculate-risk-score")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("AGRO_TEST_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: agrocredit
    user: agro
    password: ${AGRO_TEST_DB_PASSWORD}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "camunda.broker_address",
		},
		{
			name: "cache without redis",
			body: `
camunda:
  broker_address: b
database:
  postgres: {host: h, database: d, user: u}
cache:
  enabled: true
`,
			wantErr: "database.redis.address",
		},
		{
			name: "events without topic",
			body: `
camunda:
  broker_address: b
database:
  postgres: {host: h, database: d, user: u}
events:
  enabled: true
`,
			wantErr: "events.topic_arn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EVENTS_TOPIC_ARN", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"run-partner-match": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "run-partner-match"))
	assert.True(t, IsWorkerEnabled(cfg, "calculate-risk-score"))
}
