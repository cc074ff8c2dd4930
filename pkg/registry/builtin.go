package registry

// Task types served by this module.
const (
	TaskCalculateRiskScore = "calculate-risk-score"
	TaskRunPartnerMatch    = "run-partner-match"
)

// PipelineProcessID is the BPMN process that chains the two tasks.
const PipelineProcessID = "credit-risk-pipeline"

func operationInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []interface{}{"operationId"},
		"properties": map[string]interface{}{
			"operationId": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "Credit operation to process",
			},
		},
	}
}

// Builtin returns the activity descriptors for the pipeline workers.
func Builtin() []Activity {
	return []Activity{
		{
			ID:                   "scoring.risk.calculate",
			DisplayName:          "Calculate Risk Score",
			Description:          "Scores the applicant of a credit operation and persists the risk profile and eligibility table",
			Category:             "scoring",
			Version:              "1.0.0",
			TaskType:             TaskCalculateRiskScore,
			ImplementationStatus: "completed",
			InputSchema:          operationInputSchema(),
			OutputSchema: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"riskScoreId", "totalScore", "riskProfile"},
				"properties": map[string]interface{}{
					"riskScoreId": map[string]interface{}{"type": "string"},
					"totalScore":  map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
					"riskProfile": map[string]interface{}{"type": "string", "enum": []interface{}{"CONSERVATIVE", "MODERATE", "STRUCTURED"}},
					"validUntil":  map[string]interface{}{"type": "string", "format": "date-time"},
					"eligibility": map[string]interface{}{"type": "array"},
				},
			},
			ErrorCodes: []string{"OPERATION_NOT_FOUND", "FINANCIAL_PROFILE_MISSING", "INPUT_PARSING_FAILED", "QUERY_EXECUTION_FAILED", "PERSIST_FAILED"},
			Timeout:    "30s",
			Retries:    3,
			Workflows:  []string{PipelineProcessID},
			Tags:       []string{"credit", "risk"},
		},
		{
			ID:                   "matching.partner.rank",
			DisplayName:          "Run Partner Match",
			Description:          "Ranks active partner institutions against a scored credit operation and persists the match set",
			Category:             "matching",
			Version:              "1.0.0",
			TaskType:             TaskRunPartnerMatch,
			ImplementationStatus: "completed",
			InputSchema:          operationInputSchema(),
			OutputSchema: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"totalPartners", "matchCount"},
				"properties": map[string]interface{}{
					"totalPartners": map[string]interface{}{"type": "integer", "minimum": 0},
					"matchCount":    map[string]interface{}{"type": "integer", "minimum": 0},
					"topPartnerId":  map[string]interface{}{"type": "string"},
					"matches":       map[string]interface{}{"type": "array"},
				},
			},
			ErrorCodes: []string{"OPERATION_NOT_FOUND", "RISK_SCORE_MISSING", "INPUT_PARSING_FAILED", "QUERY_EXECUTION_FAILED", "PERSIST_FAILED"},
			Timeout:    "30s",
			Retries:    3,
			Workflows:  []string{PipelineProcessID},
			Tags:       []string{"credit", "matching"},
		},
	}
}

// MustBuiltin returns the builtin activity for taskType and panics if there is none.
func MustBuiltin(taskType string) Activity {
	reg := ActivityRegistry{Activities: Builtin()}
	a, ok := reg.Find(taskType)
	if !ok {
		panic("registry: no builtin activity for task type " + taskType)
	}
	return a
}
