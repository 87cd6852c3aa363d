package assistant

import (
	"encoding/json"

	"github.com/qri-io/jsonschema"
)

// assessmentSchema mirrors the response schema the model is constrained to.
const assessmentSchema = `{
	"type": "object",
	"properties": {
		"command": {"type": "string", "minLength": 1},
		"context": {"type": "string"},
		"emergencyType": {"type": "string", "enum": ["Medical", "Accident", "Fire", "Harassment", "Disaster", "Uncertain"]},
		"severity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
	},
	"required": ["command", "context", "emergencyType", "severity"]
}`

// modelAssessment is the JSON object the model returns.
type modelAssessment struct {
	Command       string `json:"command"`
	Context       string `json:"context"`
	EmergencyType string `json:"emergencyType"`
	Severity      string `json:"severity"`
}

func compileSchema() (*jsonschema.Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(assessmentSchema), rs); err != nil {
		return nil, err
	}
	return rs, nil
}
