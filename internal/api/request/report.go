package request

import (
	"strings"

	"github.com/edvin/civicwatch/internal/adapter"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

type CreateReport struct {
	EventType   string   `json:"event_type" validate:"required,event_type"`
	Description string   `json:"description" validate:"required,max=4000"`
	Lat         *float64 `json:"lat" validate:"required,latitude"`
	Lng         *float64 `json:"lng" validate:"required,longitude"`
	Address     string   `json:"address" validate:"max=512"`
	District    string   `json:"district" validate:"max=128"`
	State       string   `json:"state" validate:"max=128"`
	Timestamp   string   `json:"timestamp"`
	Trust       *float64 `json:"trust" validate:"omitempty,gte=0,lte=1"`
	Media       []string `json:"media" validate:"omitempty,dive,url"`
	MediaType   string   `json:"media_type" validate:"omitempty,oneof=PHOTO VIDEO"`
	UserID      string   `json:"user_id" validate:"max=128"`
}

// Report converts the request. An empty timestamp is left zero so the
// service fills in the submission time; anything else must parse. A missing
// trust is adapter.DefaultTrust.
func (c CreateReport) Report() (*model.Report, error) {
	r := &model.Report{
		EventType:   model.EventType(c.EventType),
		Description: strings.TrimSpace(c.Description),
		Location: model.Location{
			Lat:      *c.Lat,
			Lng:      *c.Lng,
			Address:  c.Address,
			District: c.District,
			State:    c.State,
		},
		Trust:     adapter.DefaultTrust,
		Media:     c.Media,
		MediaType: model.MediaType(c.MediaType),
		UserID:    c.UserID,
	}
	if c.Trust != nil {
		r.Trust = *c.Trust
	}
	if c.Timestamp != "" {
		ts, err := triage.ParseTimestamp(c.Timestamp)
		if err != nil {
			return nil, err
		}
		r.Timestamp = ts.UTC()
	}
	if r.MediaType == "" && len(r.Media) > 0 {
		r.MediaType = model.MediaPhoto
	}
	return r, nil
}

// TriageReport carries the analyst's notes for verify, reject and escalate.
type TriageReport struct {
	Notes string `json:"notes" validate:"max=4000"`
}

type ImportReports struct {
	Reports []adapter.CrimeReport `json:"reports" validate:"required,min=1,max=5000"`
}

// ReportStatus validates a status query value. The "pending" synonym is
// accepted for new.
func ReportStatus(s string) (model.ReportStatus, bool) {
	if s == "" {
		return "", true
	}
	return model.ParseReportStatus(s)
}

// ReportPriority validates a priority query value.
func ReportPriority(s string) (model.Priority, bool) {
	if s == "" {
		return "", true
	}
	p := model.Priority(strings.ToUpper(s))
	for _, known := range model.Priorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}
