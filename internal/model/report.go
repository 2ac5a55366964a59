package model

import (
	"math"
	"time"
)

// EventType is the closed crime vocabulary used for routing and display.
type EventType string

// Event types.
const (
	EventSexualViolence   EventType = "sexual_violence"
	EventDomesticViolence EventType = "domestic_violence"
	EventStreetCrimes     EventType = "street_crimes"
	EventMobViolence      EventType = "mob_violence_lynching"
	EventRoadRage         EventType = "road_rage_incidents"
	EventCybercrimes      EventType = "cybercrimes"
	EventDrug             EventType = "drug"
)

// EventTypes lists the known event types.
var EventTypes = []EventType{
	EventSexualViolence, EventDomesticViolence, EventStreetCrimes, EventMobViolence,
	EventRoadRage, EventCybercrimes, EventDrug,
}

// Known reports whether e is part of the closed vocabulary.
func (e EventType) Known() bool {
	for _, k := range EventTypes {
		if k == e {
			return true
		}
	}
	return false
}

// Violent event types are flagged as weapon-linked in exports.
func (e EventType) Violent() bool {
	switch e {
	case EventSexualViolence, EventDomesticViolence, EventMobViolence, EventRoadRage:
		return true
	}
	return false
}

// Priority is the coarse confidence bucket tracked by the relational store.
type Priority string

// Priorities.
const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// MediaType describes the kind of evidence attached to a report.
type MediaType string

const (
	MediaPhoto MediaType = "PHOTO"
	MediaVideo MediaType = "VIDEO"
)

// Location is a coordinate pair with optional address enrichment.
type Location struct {
	Lat      float64 `json:"lat" db:"latitude"`
	Lng      float64 `json:"lng" db:"longitude"`
	Address  string  `json:"address,omitempty" db:"address"`
	District string  `json:"district,omitempty" db:"district"`
	State    string  `json:"state,omitempty" db:"state"`
}

// Mappable reports whether both coordinates are finite numbers.
func (l Location) Mappable() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) &&
		!math.IsNaN(l.Lng) && !math.IsInf(l.Lng, 0)
}

// Report is a citizen-submitted observation. It is the canonical shape;
// storage and UI representations are produced by internal/adapter.
type Report struct {
	ID              string       `json:"id" db:"id"`
	EventType       EventType    `json:"event_type" db:"event_type"`
	Description     string       `json:"description" db:"description"`
	Location        Location     `json:"location"`
	Timestamp       time.Time    `json:"timestamp" db:"observed_at"`
	Trust           float64      `json:"trust" db:"trust"`
	Priority        Priority     `json:"priority,omitempty" db:"priority"`
	Status          ReportStatus `json:"status" db:"status"`
	Media           []string     `json:"media" db:"media"`
	MediaType       MediaType    `json:"media_type,omitempty" db:"media_type"`
	UserID          string       `json:"user_id,omitempty" db:"user_id"`
	VerifiedBy      *string      `json:"verified_by,omitempty" db:"verified_by"`
	AnalystNotes    string       `json:"analyst_notes,omitempty" db:"analyst_notes"`
	EscalatedTo     *string      `json:"escalated_to,omitempty" db:"escalated_to"`
	EscalationNotes *string      `json:"escalation_notes,omitempty" db:"escalation_notes"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// Escalation is an immutable record of a report being routed to a department.
type Escalation struct {
	ID          string    `json:"id" db:"id"`
	ReportID    string    `json:"report_id" db:"report_id"`
	Department  string    `json:"department" db:"department"`
	EscalatedBy string    `json:"escalated_by" db:"escalated_by"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
