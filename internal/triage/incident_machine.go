package triage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
)

var incidentTargets = map[model.IncidentAction]model.IncidentStatus{
	model.ActionAcknowledge: model.IncidentAcknowledged,
	model.ActionDispatch:    model.IncidentDispatched,
	model.ActionPublish:     model.IncidentPublished,
	model.ActionClose:       model.IncidentClosed,
}

// ApplyIncidentAction returns the status after action. Apart from closed,
// which is absorbing, every action is accepted from every status; escalate
// leaves the status unchanged.
func ApplyIncidentAction(current model.IncidentStatus, action model.IncidentAction) (model.IncidentStatus, error) {
	if current == model.IncidentClosed {
		return current, fmt.Errorf("%s incident: %w", action, ErrIncidentClosed)
	}
	if action == model.ActionEscalate {
		return current, nil
	}
	next, ok := incidentTargets[action]
	if !ok {
		return current, fmt.Errorf("incident action %q: %w", action, ErrUnknownAction)
	}
	return next, nil
}

// NewActionEntry builds the audit line for an applied incident action. An
// empty payload is stored as an empty JSON object.
func NewActionEntry(incidentID string, action model.IncidentAction, actor string, from, to model.IncidentStatus, payload json.RawMessage, at time.Time) model.ActionEntry {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return model.ActionEntry{
		ID:         platform.NewEntryID(),
		IncidentID: incidentID,
		Action:     action,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   to,
		Payload:    payload,
		CreatedAt:  at,
	}
}
