// Package realtime fans domain events out to connected dashboards. Each
// subscription carries its own filter.
package realtime

import (
	"time"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// EventType names the kind of change carried by an Event.
type EventType string

const (
	EventConnection      EventType = "connection"
	EventNewReport       EventType = "new_report"
	EventReportUpdated   EventType = "report_updated"
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventSystemAlert     EventType = "system_alert"
)

// Alert is the payload of a system_alert event.
type Alert struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// Event is the wire envelope written to SSE and WebSocket clients.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func ReportEvent(t EventType, r *model.Report, at time.Time) Event {
	cp := *r
	return Event{Type: t, Data: &cp, Timestamp: at}
}

func IncidentEvent(t EventType, i *model.Incident, at time.Time) Event {
	cp := *i
	return Event{Type: t, Data: &cp, Timestamp: at}
}

func AlertEvent(message string, at time.Time) Event {
	return Event{Type: EventSystemAlert, Data: Alert{Message: message, Level: "info"}, Timestamp: at}
}

// Matches applies f to the record carried by the event. Events without a
// report or incident are delivered to every subscriber.
func (e Event) Matches(f triage.Filter, now time.Time) bool {
	switch d := e.Data.(type) {
	case *model.Report:
		return f.MatchesReport(d, now)
	case *model.Incident:
		return f.MatchesIncident(d, now)
	}
	return true
}
