package triage

import (
	"fmt"

	"github.com/edvin/civicwatch/internal/model"
)

// reportTargets maps each analyst action to the status it produces and the
// statuses it may be applied from.
var reportTargets = map[model.ReportAction]struct {
	to   model.ReportStatus
	from []model.ReportStatus
}{
	model.ActionReview: {model.ReportInReview, []model.ReportStatus{model.ReportNew}},
	model.ActionVerify: {model.ReportVerified, []model.ReportStatus{model.ReportNew, model.ReportInReview}},
	model.ActionReject: {model.ReportRejected, []model.ReportStatus{model.ReportNew, model.ReportInReview}},
}

// ApplyReportAction returns the status reached by applying action to current.
// Repeating the action that produced current is a successful no-op and
// reports changed=false; callers must not touch updated_at in that case.
func ApplyReportAction(current model.ReportStatus, action model.ReportAction) (next model.ReportStatus, changed bool, err error) {
	t, ok := reportTargets[action]
	if !ok {
		return current, false, fmt.Errorf("report action %q: %w", action, ErrUnknownAction)
	}
	if current == t.to {
		return current, false, nil
	}
	for _, from := range t.from {
		if current == from {
			return t.to, true, nil
		}
	}
	return current, false, &TransitionError{Action: string(action), From: string(current), Kind: "report"}
}

// SpawnsIncident reports whether moving from prev to next is the first entry
// into verified.
func SpawnsIncident(prev, next model.ReportStatus) bool {
	return prev != model.ReportVerified && next == model.ReportVerified
}
