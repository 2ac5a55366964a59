package adapter

import (
	"fmt"
	"time"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// LegacyLocation is the nested location object of the analyst UI.
type LegacyLocation struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// LegacyReport is the flat report shape the analyst UI reads and writes.
type LegacyReport struct {
	ID              string          `json:"id"`
	EventType       string          `json:"eventType"`
	Text            string          `json:"text"`
	Lat             *float64        `json:"lat"`
	Lng             *float64        `json:"lng"`
	Timestamp       string          `json:"timestamp"`
	Trust           *float64        `json:"trust,omitempty"`
	Status          string          `json:"status"`
	Media           []string        `json:"media"`
	MediaCount      int             `json:"mediaCount"`
	ReportTitle     string          `json:"reportTitle,omitempty"`
	ReportType      string          `json:"reportType,omitempty"`
	Location        *LegacyLocation `json:"location,omitempty"`
	PriorityLevel   string          `json:"priorityLevel,omitempty"`
	UserID          string          `json:"userId,omitempty"`
	VerifiedBy      *string         `json:"verifiedBy,omitempty"`
	AnalystNotes    string          `json:"analystNotes,omitempty"`
	EscalatedTo     *string         `json:"escalatedTo,omitempty"`
	EscalationNotes *string         `json:"escalationNotes,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

// ToLegacy renders a report for the analyst UI. District and state have no
// legacy field and are dropped.
func ToLegacy(r *model.Report) LegacyReport {
	lat, lng, trust := r.Location.Lat, r.Location.Lng, r.Trust
	media := r.Media
	if media == nil {
		media = []string{}
	}
	l := LegacyReport{
		ID:              r.ID,
		EventType:       string(r.EventType),
		Text:            r.Description,
		Lat:             &lat,
		Lng:             &lng,
		Timestamp:       formatTime(r.Timestamp),
		Trust:           &trust,
		Status:          string(r.Status),
		Media:           media,
		MediaCount:      len(media),
		ReportTitle:     Title(r.EventType),
		ReportType:      string(r.MediaType),
		PriorityLevel:   string(r.Priority),
		UserID:          r.UserID,
		VerifiedBy:      r.VerifiedBy,
		AnalystNotes:    r.AnalystNotes,
		EscalatedTo:     r.EscalatedTo,
		EscalationNotes: r.EscalationNotes,
		CreatedAt:       formatTime(r.CreatedAt),
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
	if r.Location.Address != "" {
		l.Location = &LegacyLocation{Address: r.Location.Address, Lat: lat, Lng: lng}
	}
	return l
}

// FromLegacy reads a UI report. Missing trust defaults to DefaultTrust and
// missing coordinates to 0; the flat lat/lng win over the nested location.
func FromLegacy(l LegacyReport) (model.Report, error) {
	ts, err := triage.ParseTimestamp(l.Timestamp)
	if err != nil {
		return model.Report{}, fmt.Errorf("read legacy report %s: %w", l.ID, err)
	}
	r := model.Report{
		ID:              l.ID,
		EventType:       model.EventType(l.EventType),
		Description:     l.Text,
		Timestamp:       ts,
		Trust:           DefaultTrust,
		Priority:        model.Priority(l.PriorityLevel),
		Status:          StatusFromLegacy(l.Status),
		Media:           l.Media,
		MediaType:       model.MediaType(l.ReportType),
		UserID:          l.UserID,
		VerifiedBy:      l.VerifiedBy,
		AnalystNotes:    l.AnalystNotes,
		EscalatedTo:     l.EscalatedTo,
		EscalationNotes: l.EscalationNotes,
	}
	if l.Trust != nil {
		r.Trust = *l.Trust
	}
	if l.Location != nil {
		r.Location = model.Location{Address: l.Location.Address, Lat: l.Location.Lat, Lng: l.Location.Lng}
	}
	if l.Lat != nil {
		r.Location.Lat = *l.Lat
	}
	if l.Lng != nil {
		r.Location.Lng = *l.Lng
	}
	if r.Media == nil {
		r.Media = []string{}
	}
	r.CreatedAt, _ = triage.ParseTimestamp(l.CreatedAt)
	r.UpdatedAt, _ = triage.ParseTimestamp(l.UpdatedAt)
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
