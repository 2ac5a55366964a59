package adapter

import (
	"fmt"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// DefaultAnalystNotes is shown on incidents created without analyst notes.
const DefaultAnalystNotes = "Verified by analyst"

// MapLocation is the location object of the map-display incident.
type MapLocation struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	District string  `json:"district"`
	State    string  `json:"state"`
	Address  string  `json:"address"`
}

// MapIncident is the incident shape consumed by the authority map.
type MapIncident struct {
	ID                 string                   `json:"id"`
	Title              string                   `json:"title"`
	EventType          string                   `json:"eventType"`
	Location           MapLocation              `json:"location"`
	Severity           string                   `json:"severity"`
	Confidence         float64                  `json:"confidence"`
	Status             string                   `json:"status"`
	Timestamp          string                   `json:"timestamp"`
	Description        string                   `json:"description"`
	Media              []string                 `json:"media"`
	AnalystNotes       string                   `json:"analystNotes"`
	ValidationEvidence model.ValidationEvidence `json:"validationEvidence"`
	AffectedPopulation *int                     `json:"affectedPopulation,omitempty"`
	Resources          []string                 `json:"resources,omitempty"`
	Contacts           []model.Contact          `json:"contacts,omitempty"`
}

// ToMapIncident renders an incident for the map.
func ToMapIncident(i *model.Incident) MapIncident {
	media := i.Media
	if media == nil {
		media = []string{}
	}
	return MapIncident{
		ID:        i.ID,
		Title:     i.Title,
		EventType: string(i.EventType),
		Location: MapLocation{
			Lat:      i.Location.Lat,
			Lng:      i.Location.Lng,
			District: i.Location.District,
			State:    i.Location.State,
			Address:  i.Location.Address,
		},
		Severity:           string(i.Severity),
		Confidence:         i.Confidence,
		Status:             string(i.Status),
		Timestamp:          formatTime(i.Timestamp),
		Description:        i.Description,
		Media:              media,
		AnalystNotes:       i.AnalystNotes,
		ValidationEvidence: i.ValidationEvidence,
		AffectedPopulation: i.AffectedPopulation,
		Resources:          i.Resources,
		Contacts:           i.Contacts,
	}
}

// FromMapIncident reads a map incident. Unknown statuses read as open.
func FromMapIncident(m MapIncident) (model.Incident, error) {
	ts, err := triage.ParseTimestamp(m.Timestamp)
	if err != nil {
		return model.Incident{}, fmt.Errorf("read map incident %s: %w", m.ID, err)
	}
	status, ok := model.ParseIncidentStatus(m.Status)
	if !ok {
		status = model.IncidentOpen
	}
	media := m.Media
	if media == nil {
		media = []string{}
	}
	return model.Incident{
		ID:        m.ID,
		Title:     m.Title,
		EventType: model.EventType(m.EventType),
		Location: model.Location{
			Lat:      m.Location.Lat,
			Lng:      m.Location.Lng,
			Address:  m.Location.Address,
			District: m.Location.District,
			State:    m.Location.State,
		},
		Timestamp:          ts,
		Description:        m.Description,
		Media:              media,
		Severity:           model.Severity(m.Severity),
		Confidence:         m.Confidence,
		Status:             status,
		ValidationEvidence: m.ValidationEvidence,
		AnalystNotes:       m.AnalystNotes,
		AffectedPopulation: m.AffectedPopulation,
		Contacts:           m.Contacts,
		Resources:          m.Resources,
	}, nil
}

// IncidentFromReport projects a verified report into a new open incident.
// The caller assigns the ID and timestamps.
func IncidentFromReport(r *model.Report) model.Incident {
	notes := r.AnalystNotes
	if notes == "" {
		notes = DefaultAnalystNotes
	}
	media := append([]string{}, r.Media...)
	inc := model.Incident{
		ReportID:    r.ID,
		Title:       Title(r.EventType),
		EventType:   r.EventType,
		Location:    r.Location,
		Timestamp:   r.Timestamp,
		Description: r.Description,
		Media:       media,
		Severity:    SeverityForReport(r),
		Confidence:  r.Trust,
		Status:      model.IncidentOpen,
		ValidationEvidence: model.ValidationEvidence{
			ExifValid:          len(r.Media) > 0,
			LocationConfirmed:  r.Location.Lat != 0 && r.Location.Lng != 0,
			TimelineConsistent: !r.Timestamp.IsZero() && (r.CreatedAt.IsZero() || !r.Timestamp.After(r.CreatedAt)),
			CrossReferenced:    r.VerifiedBy != nil,
		},
		AnalystNotes: notes,
		Resources:    []string{},
	}
	if r.EscalatedTo != nil {
		inc.EscalatedTo = r.EscalatedTo
		inc.Contacts = []model.Contact{DepartmentContact(*r.EscalatedTo)}
	}
	return inc
}

// DepartmentContact is the placeholder contact added for an escalation target.
func DepartmentContact(department string) model.Contact {
	return model.Contact{
		Name:       department,
		Role:       "Department",
		Phone:      "N/A",
		Email:      "N/A",
		Department: department,
	}
}

// IncidentFromCrimeReport projects a relational row directly, taking the
// incident status from its escalation.
func IncidentFromCrimeReport(c CrimeReport) (model.Incident, error) {
	r, err := FromCrimeReport(c)
	inc := IncidentFromReport(&r)
	if c.Escalation != nil {
		inc.Status = IncidentStatusForEscalation(c.Escalation.Status)
	}
	return inc, err
}
