package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/edvin/civicwatch/internal/model"
)

type locationDoc struct {
	Lat      float64 `bson:"lat"`
	Lng      float64 `bson:"lng"`
	Address  string  `bson:"address,omitempty"`
	District string  `bson:"district,omitempty"`
	State    string  `bson:"state,omitempty"`
}

func toLocationDoc(l model.Location) locationDoc {
	return locationDoc{Lat: l.Lat, Lng: l.Lng, Address: l.Address, District: l.District, State: l.State}
}

func (d locationDoc) model() model.Location {
	return model.Location{Lat: d.Lat, Lng: d.Lng, Address: d.Address, District: d.District, State: d.State}
}

type reportDoc struct {
	ID              string      `bson:"_id"`
	EventType       string      `bson:"event_type"`
	Description     string      `bson:"description"`
	Location        locationDoc `bson:"location"`
	ObservedAt      time.Time   `bson:"observed_at"`
	Trust           float64     `bson:"trust"`
	Priority        string      `bson:"priority"`
	Status          string      `bson:"status"`
	Media           []string    `bson:"media"`
	MediaType       string      `bson:"media_type,omitempty"`
	UserID          string      `bson:"user_id,omitempty"`
	VerifiedBy      *string     `bson:"verified_by,omitempty"`
	AnalystNotes    string      `bson:"analyst_notes,omitempty"`
	EscalatedTo     *string     `bson:"escalated_to,omitempty"`
	EscalationNotes *string     `bson:"escalation_notes,omitempty"`
	CreatedAt       time.Time   `bson:"created_at"`
	UpdatedAt       time.Time   `bson:"updated_at"`
}

func toReportDoc(r *model.Report) reportDoc {
	media := r.Media
	if media == nil {
		media = []string{}
	}
	return reportDoc{
		ID:              r.ID,
		EventType:       string(r.EventType),
		Description:     r.Description,
		Location:        toLocationDoc(r.Location),
		ObservedAt:      r.Timestamp,
		Trust:           r.Trust,
		Priority:        string(r.Priority),
		Status:          string(r.Status),
		Media:           media,
		MediaType:       string(r.MediaType),
		UserID:          r.UserID,
		VerifiedBy:      r.VerifiedBy,
		AnalystNotes:    r.AnalystNotes,
		EscalatedTo:     r.EscalatedTo,
		EscalationNotes: r.EscalationNotes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d reportDoc) model() model.Report {
	media := d.Media
	if media == nil {
		media = []string{}
	}
	return model.Report{
		ID:              d.ID,
		EventType:       model.EventType(d.EventType),
		Description:     d.Description,
		Location:        d.Location.model(),
		Timestamp:       d.ObservedAt.UTC(),
		Trust:           d.Trust,
		Priority:        model.Priority(d.Priority),
		Status:          model.ReportStatus(d.Status),
		Media:           media,
		MediaType:       model.MediaType(d.MediaType),
		UserID:          d.UserID,
		VerifiedBy:      d.VerifiedBy,
		AnalystNotes:    d.AnalystNotes,
		EscalatedTo:     d.EscalatedTo,
		EscalationNotes: d.EscalationNotes,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type escalationDoc struct {
	ID          string    `bson:"_id"`
	ReportID    string    `bson:"report_id"`
	Department  string    `bson:"department"`
	EscalatedBy string    `bson:"escalated_by"`
	Notes       string    `bson:"notes,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

type evidenceDoc struct {
	ExifValid          bool `bson:"exif_valid"`
	LocationConfirmed  bool `bson:"location_confirmed"`
	TimelineConsistent bool `bson:"timeline_consistent"`
	CrossReferenced    bool `bson:"cross_referenced"`
}

type contactDoc struct {
	Name       string `bson:"name"`
	Role       string `bson:"role,omitempty"`
	Phone      string `bson:"phone,omitempty"`
	Email      string `bson:"email,omitempty"`
	Department string `bson:"department,omitempty"`
}

type incidentDoc struct {
	ID                 string       `bson:"_id"`
	ReportID           string       `bson:"report_id"`
	Title              string       `bson:"title"`
	EventType          string       `bson:"event_type"`
	Location           locationDoc  `bson:"location"`
	ObservedAt         time.Time    `bson:"observed_at"`
	Description        string       `bson:"description"`
	Media              []string     `bson:"media"`
	Severity           string       `bson:"severity"`
	Confidence         float64      `bson:"confidence"`
	Status             string       `bson:"status"`
	ValidationEvidence evidenceDoc  `bson:"validation_evidence"`
	AnalystNotes       string       `bson:"analyst_notes,omitempty"`
	AffectedPopulation *int         `bson:"affected_population,omitempty"`
	Contacts           []contactDoc `bson:"contacts,omitempty"`
	Resources          []string     `bson:"resources,omitempty"`
	EscalatedTo        *string      `bson:"escalated_to,omitempty"`
	CreatedAt          time.Time    `bson:"created_at"`
	UpdatedAt          time.Time    `bson:"updated_at"`
}

func toIncidentDoc(i *model.Incident) incidentDoc {
	media := i.Media
	if media == nil {
		media = []string{}
	}
	var contacts []contactDoc
	for _, c := range i.Contacts {
		contacts = append(contacts, contactDoc(c))
	}
	return incidentDoc{
		ID:                 i.ID,
		ReportID:           i.ReportID,
		Title:              i.Title,
		EventType:          string(i.EventType),
		Location:           toLocationDoc(i.Location),
		ObservedAt:         i.Timestamp,
		Description:        i.Description,
		Media:              media,
		Severity:           string(i.Severity),
		Confidence:         i.Confidence,
		Status:             string(i.Status),
		ValidationEvidence: evidenceDoc(i.ValidationEvidence),
		AnalystNotes:       i.AnalystNotes,
		AffectedPopulation: i.AffectedPopulation,
		Contacts:           contacts,
		Resources:          i.Resources,
		EscalatedTo:        i.EscalatedTo,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func (d incidentDoc) model() model.Incident {
	media := d.Media
	if media == nil {
		media = []string{}
	}
	var contacts []model.Contact
	for _, c := range d.Contacts {
		contacts = append(contacts, model.Contact(c))
	}
	return model.Incident{
		ID:                 d.ID,
		ReportID:           d.ReportID,
		Title:              d.Title,
		EventType:          model.EventType(d.EventType),
		Location:           d.Location.model(),
		Timestamp:          d.ObservedAt.UTC(),
		Description:        d.Description,
		Media:              media,
		Severity:           model.Severity(d.Severity),
		Confidence:         d.Confidence,
		Status:             model.IncidentStatus(d.Status),
		ValidationEvidence: model.ValidationEvidence(d.ValidationEvidence),
		AnalystNotes:       d.AnalystNotes,
		AffectedPopulation: d.AffectedPopulation,
		Contacts:           contacts,
		Resources:          d.Resources,
		EscalatedTo:        d.EscalatedTo,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

type actionDoc struct {
	ID         string    `bson:"_id"`
	IncidentID string    `bson:"incident_id"`
	Action     string    `bson:"action"`
	Actor      string    `bson:"actor"`
	FromStatus string    `bson:"from_status"`
	ToStatus   string    `bson:"to_status"`
	Payload    bson.M    `bson:"payload"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toActionDoc(e *model.ActionEntry) (actionDoc, error) {
	payload := bson.M{}
	if len(e.Payload) > 0 {
		if err := bson.UnmarshalExtJSON(e.Payload, false, &payload); err != nil {
			return actionDoc{}, fmt.Errorf("encode action payload: %w", err)
		}
	}
	return actionDoc{
		ID:         e.ID,
		IncidentID: e.IncidentID,
		Action:     string(e.Action),
		Actor:      e.Actor,
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Payload:    payload,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func (d actionDoc) model() (model.ActionEntry, error) {
	payload := json.RawMessage(`{}`)
	if len(d.Payload) > 0 {
		b, err := bson.MarshalExtJSON(d.Payload, false, false)
		if err != nil {
			return model.ActionEntry{}, fmt.Errorf("decode action payload: %w", err)
		}
		payload = b
	}
	return model.ActionEntry{
		ID:         d.ID,
		IncidentID: d.IncidentID,
		Action:     model.IncidentAction(d.Action),
		Actor:      d.Actor,
		FromStatus: model.IncidentStatus(d.FromStatus),
		ToStatus:   model.IncidentStatus(d.ToStatus),
		Payload:    payload,
		CreatedAt:  d.CreatedAt.UTC(),
	}, nil
}

type auditDoc struct {
	ID           string    `bson:"_id"`
	Actor        string    `bson:"actor"`
	Role         string    `bson:"role,omitempty"`
	Method       string    `bson:"method"`
	Path         string    `bson:"path"`
	ResourceType *string   `bson:"resource_type,omitempty"`
	ResourceID   *string   `bson:"resource_id,omitempty"`
	StatusCode   int       `bson:"status_code"`
	RequestBody  string    `bson:"request_body,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}
