package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"operationId"},
		"properties": map[string]interface{}{
			"operationId": map[string]interface{}{"type": "string", "minLength": 1},
		},
	}
}

func TestSchema_ValidateInput(t *testing.T) {
	schema, err := CompileSchema(operationSchema())
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     map[string]interface{}
		valid     bool
		errField  string
		errorCode string
	}{
		{name: "valid", input: map[string]interface{}{"operationId": "op-1"}, valid: true},
		{name: "extra process variables allowed", input: map[string]interface{}{"operationId": "op-1", "applicantName": "x"}, valid: true},
		{name: "missing", input: map[string]interface{}{}, errField: "operationId", errorCode: "REQUIRED"},
		{name: "wrong type", input: map[string]interface{}{"operationId": 42}, errField: "operationId", errorCode: "INVALID_TYPE"},
		{name: "empty", input: map[string]interface{}{"operationId": ""}, errField: "operationId", errorCode: "STRING_GTE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := schema.ValidateInput(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.True(t, res.HasErrors(tt.errField), "errors: %v", res.GetErrorMessages())
			assert.Equal(t, tt.errorCode, res.Errors[0].Code)
		})
	}
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(map[string]interface{}{"type": 12})
	assert.Error(t, err)
}

func TestValidateActivityNaming(t *testing.T) {
	assert.NoError(t, ValidateActivityNaming("scoring.risk.calculate"))
	assert.Error(t, ValidateActivityNaming("calculate-risk-score"))
}
