package request

import (
	"encoding/json"

	"github.com/edvin/civicwatch/internal/model"
)

type ApplyIncidentAction struct {
	Action  string          `json:"action" validate:"required,oneof=acknowledge dispatch publish escalate close"`
	Payload json.RawMessage `json:"payload"`
}

// IncidentStatus validates an incident status query value.
func IncidentStatus(s string) (model.IncidentStatus, bool) {
	if s == "" {
		return "", true
	}
	return model.ParseIncidentStatus(s)
}

// IncidentSeverity validates a severity query value.
func IncidentSeverity(s string) (model.Severity, bool) {
	sev := model.Severity(s)
	if s == "" || sev.Rank() > 0 {
		return sev, true
	}
	return "", false
}
