// Package adapter converts between the canonical model and the three external
// record shapes: the flat analyst UI report, the relational crime report and
// the map-display incident. Every vocabulary table lives here once and is
// used in both directions.
package adapter

import (
	"fmt"
	"strings"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// DefaultTrust is assumed when a record carries neither trust nor priority.
const DefaultTrust = 0.5

// Relational status values.
const (
	CrimeStatusPending  = "PENDING"
	CrimeStatusVerified = "VERIFIED"
	CrimeStatusRejected = "REJECTED"
)

// Escalation status values of the relational store.
const (
	EscalationPending    = "PENDING"
	EscalationInProgress = "IN_PROGRESS"
	EscalationCompleted  = "COMPLETED"
	EscalationRejected   = "REJECTED"
)

var categoryToEventType = map[string]model.EventType{
	"SEXUAL_VIOLENCE":       model.EventSexualViolence,
	"DOMESTIC_VIOLENCE":     model.EventDomesticViolence,
	"STREET_CRIMES":         model.EventStreetCrimes,
	"MOB_VIOLENCE_LYNCHING": model.EventMobViolence,
	"ROAD_RAGE_INCIDENTS":   model.EventRoadRage,
	"CYBERCRIMES":           model.EventCybercrimes,
	"DRUG":                  model.EventDrug,
}

var priorityToTrust = map[model.Priority]float64{
	model.PriorityLow:      0.3,
	model.PriorityMedium:   0.6,
	model.PriorityHigh:     0.8,
	model.PriorityCritical: 0.9,
}

var priorityToSeverity = map[model.Priority]model.Severity{
	model.PriorityLow:      model.SeverityLow,
	model.PriorityMedium:   model.SeverityModerate,
	model.PriorityHigh:     model.SeverityHigh,
	model.PriorityCritical: model.SeverityCritical,
}

var escalationToIncident = map[string]model.IncidentStatus{
	EscalationPending:    model.IncidentOpen,
	EscalationInProgress: model.IncidentAcknowledged,
	EscalationCompleted:  model.IncidentDispatched,
	EscalationRejected:   model.IncidentClosed,
}

// EventTypeForCategory maps a relational category. An unmapped category
// returns the lower-cased raw value together with ErrUnknownCategory so the
// caller can log it and keep the record.
func EventTypeForCategory(category string) (model.EventType, error) {
	if e, ok := categoryToEventType[category]; ok {
		return e, nil
	}
	raw := model.EventType(strings.ToLower(category))
	return raw, fmt.Errorf("category %q: %w", category, triage.ErrUnknownCategory)
}

// CategoryFor is the inverse of EventTypeForCategory.
func CategoryFor(e model.EventType) string {
	return strings.ToUpper(string(e))
}

// StatusFromCrime maps a relational status; unknown values read as new.
func StatusFromCrime(s string) model.ReportStatus {
	switch s {
	case CrimeStatusVerified:
		return model.ReportVerified
	case CrimeStatusRejected:
		return model.ReportRejected
	}
	return model.ReportNew
}

// StatusToCrime maps a report status to the relational vocabulary. The
// relational store has no review state, so in_review collapses to PENDING.
func StatusToCrime(s model.ReportStatus) string {
	switch s {
	case model.ReportVerified:
		return CrimeStatusVerified
	case model.ReportRejected:
		return CrimeStatusRejected
	}
	return CrimeStatusPending
}

// StatusFromLegacy reads a UI status; "pending" and unknown values read as new.
func StatusFromLegacy(s string) model.ReportStatus {
	if st, ok := model.ParseReportStatus(s); ok {
		return st
	}
	return model.ReportNew
}

// TrustForPriority returns the trust approximation of a priority bucket.
func TrustForPriority(p model.Priority) float64 {
	if t, ok := priorityToTrust[p]; ok {
		return t
	}
	return DefaultTrust
}

// PriorityForTrust buckets a trust score at the midpoints between the
// priority trust values.
func PriorityForTrust(trust float64) model.Priority {
	switch {
	case trust < 0.45:
		return model.PriorityLow
	case trust < 0.7:
		return model.PriorityMedium
	case trust < 0.85:
		return model.PriorityHigh
	}
	return model.PriorityCritical
}

// SeverityForPriority maps a priority; unset priorities read as moderate.
func SeverityForPriority(p model.Priority) model.Severity {
	if s, ok := priorityToSeverity[p]; ok {
		return s
	}
	return model.SeverityModerate
}

// SeverityForReport prefers the explicit priority and falls back to the
// trust bucket.
func SeverityForReport(r *model.Report) model.Severity {
	p := r.Priority
	if p == "" {
		p = PriorityForTrust(r.Trust)
	}
	return SeverityForPriority(p)
}

// IncidentStatusForEscalation maps a relational escalation status; unknown
// values read as open.
func IncidentStatusForEscalation(s string) model.IncidentStatus {
	if st, ok := escalationToIncident[s]; ok {
		return st
	}
	return model.IncidentOpen
}

// Title renders a display title such as "Street Crimes Report".
func Title(e model.EventType) string {
	words := strings.Split(string(e), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " Report"
}
