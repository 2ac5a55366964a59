package model

// ReportStatus is the triage state of a citizen report.
type ReportStatus string

// Report statuses.
const (
	ReportNew      ReportStatus = "new"
	ReportInReview ReportStatus = "in_review"
	ReportVerified ReportStatus = "verified"
	ReportRejected ReportStatus = "rejected"
)

// ReportStatuses lists every report status in lifecycle order.
var ReportStatuses = []ReportStatus{ReportNew, ReportInReview, ReportVerified, ReportRejected}

// ParseReportStatus accepts the canonical names plus the "pending" synonym for new.
func ParseReportStatus(s string) (ReportStatus, bool) {
	switch s {
	case "new", "pending":
		return ReportNew, true
	case "in_review":
		return ReportInReview, true
	case "verified":
		return ReportVerified, true
	case "rejected":
		return ReportRejected, true
	}
	return "", false
}

// Terminal reports whether no further report transition is defined.
func (s ReportStatus) Terminal() bool {
	return s == ReportVerified || s == ReportRejected
}

// IncidentStatus is the authority-side state of an incident. It records the
// last action applied rather than a strict progression.
type IncidentStatus string

// Incident statuses.
const (
	IncidentOpen         IncidentStatus = "open"
	IncidentAcknowledged IncidentStatus = "acknowledged"
	IncidentDispatched   IncidentStatus = "dispatched"
	IncidentPublished    IncidentStatus = "published"
	IncidentClosed       IncidentStatus = "closed"
)

// IncidentStatuses lists every incident status.
var IncidentStatuses = []IncidentStatus{
	IncidentOpen, IncidentAcknowledged, IncidentDispatched, IncidentPublished, IncidentClosed,
}

// ParseIncidentStatus validates an incident status string.
func ParseIncidentStatus(s string) (IncidentStatus, bool) {
	for _, st := range IncidentStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ReportAction is an analyst action on a report.
type ReportAction string

// Report actions.
const (
	ActionReview ReportAction = "review"
	ActionVerify ReportAction = "verify"
	ActionReject ReportAction = "reject"
)

// IncidentAction is an authority action on an incident.
type IncidentAction string

// Incident actions.
const (
	ActionAcknowledge IncidentAction = "acknowledge"
	ActionDispatch    IncidentAction = "dispatch"
	ActionPublish     IncidentAction = "publish"
	ActionEscalate    IncidentAction = "escalate"
	ActionClose       IncidentAction = "close"
)

// IncidentActions lists every incident action.
var IncidentActions = []IncidentAction{
	ActionAcknowledge, ActionDispatch, ActionPublish, ActionEscalate, ActionClose,
}
