package model

import (
	"encoding/json"
	"time"
)

// Severity is an ordinal used for colour coding and filtering. It never
// drives a transition.
type Severity string

// Incident severities.
const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ValidationEvidence holds four independent checks shown next to an incident.
type ValidationEvidence struct {
	ExifValid          bool `json:"exif_valid"`
	LocationConfirmed  bool `json:"location_confirmed"`
	TimelineConsistent bool `json:"timeline_consistent"`
	CrossReferenced    bool `json:"cross_referenced"`
}

// Percentage returns the share of passed checks, 0-100.
func (v ValidationEvidence) Percentage() int {
	n := 0
	for _, ok := range []bool{v.ExifValid, v.LocationConfirmed, v.TimelineConsistent, v.CrossReferenced} {
		if ok {
			n++
		}
	}
	return n * 100 / 4
}

type Contact struct {
	Name       string `json:"name" yaml:"name"`
	Role       string `json:"role" yaml:"role"`
	Phone      string `json:"phone" yaml:"phone"`
	Email      string `json:"email" yaml:"email"`
	Department string `json:"department" yaml:"department"`
}

// Incident is the authority-facing projection of a verified report.
type Incident struct {
	ID                 string             `json:"id" db:"id"`
	ReportID           string             `json:"report_id" db:"report_id"`
	Title              string             `json:"title" db:"title"`
	EventType          EventType          `json:"event_type" db:"event_type"`
	Location           Location           `json:"location"`
	Timestamp          time.Time          `json:"timestamp" db:"observed_at"`
	Description        string             `json:"description" db:"description"`
	Media              []string           `json:"media" db:"media"`
	Severity           Severity           `json:"severity" db:"severity"`
	Confidence         float64            `json:"confidence" db:"confidence"`
	Status             IncidentStatus     `json:"status" db:"status"`
	ValidationEvidence ValidationEvidence `json:"validation_evidence" db:"validation_evidence"`
	AnalystNotes       string             `json:"analyst_notes,omitempty" db:"analyst_notes"`
	AffectedPopulation *int               `json:"affected_population,omitempty" db:"affected_population"`
	Contacts           []Contact          `json:"contacts,omitempty" db:"contacts"`
	Resources          []string           `json:"resources,omitempty" db:"resources"`
	EscalatedTo        *string            `json:"escalated_to,omitempty" db:"escalated_to"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// ActionEntry is one line of an incident's append-only audit trail.
type ActionEntry struct {
	ID         string          `json:"id" db:"id"`
	IncidentID string          `json:"incident_id" db:"incident_id"`
	Action     IncidentAction  `json:"action" db:"action"`
	Actor      string          `json:"actor" db:"actor"`
	FromStatus IncidentStatus  `json:"from_status" db:"from_status"`
	ToStatus   IncidentStatus  `json:"to_status" db:"to_status"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// DispatchPayload is opaque to the state machine; it is handed to the
// dispatch collaborator.
type DispatchPayload struct {
	TeamIDs []string `json:"team_ids"`
	Message string   `json:"message"`
}

type PublishPayload struct {
	Channel    string   `json:"channel"`
	TemplateID string   `json:"template_id"`
	Languages  []string `json:"languages"`
}

type EscalatePayload struct {
	EscalateTo string `json:"escalate_to"`
	Reason     string `json:"reason"`
}

type ClosePayload struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}
