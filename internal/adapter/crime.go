package adapter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

// CrimeEscalation is the escalation row joined onto a relational report.
type CrimeEscalation struct {
	EscalatedTo     string    `json:"escalatedTo" yaml:"escalatedTo"`
	EscalatedBy     string    `json:"escalatedBy" yaml:"escalatedBy"`
	EscalationNotes string    `json:"escalationNotes,omitempty" yaml:"escalationNotes"`
	Status          string    `json:"status" yaml:"status"`
	EscalatedAt     time.Time `json:"escalatedAt" yaml:"escalatedAt"`
}

// HumanVerification is the analyst decision joined onto a relational report.
type HumanVerification struct {
	IsVerified bool      `json:"isVerified" yaml:"isVerified"`
	Notes      string    `json:"notes,omitempty" yaml:"notes"`
	VerifiedBy string    `json:"verifiedBy" yaml:"verifiedBy"`
	VerifiedAt time.Time `json:"verifiedAt" yaml:"verifiedAt"`
}

// CrimeReport is the relational entity: upper-case enums, a single address
// string and media as a JSON encoded string.
type CrimeReport struct {
	ID                string             `json:"id" yaml:"id"`
	UserID            string             `json:"userId" yaml:"userId"`
	Timestamp         time.Time          `json:"timestamp" yaml:"timestamp"`
	Location          string             `json:"location" yaml:"location"`
	Description       string             `json:"description" yaml:"description"`
	MediaURLs         string             `json:"mediaUrls" yaml:"mediaUrls"`
	MediaType         string             `json:"mediaType" yaml:"mediaType"`
	Status            string             `json:"status" yaml:"status"`
	Priority          string             `json:"priority" yaml:"priority"`
	Category          string             `json:"category" yaml:"category"`
	Latitude          *float64           `json:"latitude,omitempty" yaml:"latitude"`
	Longitude         *float64           `json:"longitude,omitempty" yaml:"longitude"`
	CreatedAt         time.Time          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" yaml:"updatedAt"`
	Escalation        *CrimeEscalation   `json:"escalation,omitempty" yaml:"escalation"`
	HumanVerification *HumanVerification `json:"humanVerification,omitempty" yaml:"humanVerification"`
}

// FromCrimeReport converts a relational row. When the category is unmapped
// the report is still returned, carrying the lower-cased raw category, along
// with an error wrapping ErrUnknownCategory.
func FromCrimeReport(c CrimeReport) (model.Report, error) {
	eventType, catErr := EventTypeForCategory(c.Category)

	r := model.Report{
		ID:          c.ID,
		EventType:   eventType,
		Description: c.Description,
		Location: model.Location{
			Address:  c.Location,
			District: districtOf(c.Location),
		},
		Timestamp: c.Timestamp,
		Trust:     TrustForPriority(model.Priority(c.Priority)),
		Priority:  model.Priority(c.Priority),
		Status:    StatusFromCrime(c.Status),
		Media:     decodeMedia(c.MediaURLs),
		MediaType: model.MediaType(c.MediaType),
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Latitude != nil {
		r.Location.Lat = *c.Latitude
	}
	if c.Longitude != nil {
		r.Location.Lng = *c.Longitude
	}
	if hv := c.HumanVerification; hv != nil {
		by := hv.VerifiedBy
		r.VerifiedBy = &by
		r.AnalystNotes = hv.Notes
	}
	if esc := c.Escalation; esc != nil {
		to, notes := esc.EscalatedTo, esc.EscalationNotes
		r.EscalatedTo = &to
		r.EscalationNotes = &notes
	}
	return r, catErr
}

// ToCrimeReport converts a report to the relational shape. Without an
// explicit priority the trust bucket is used.
func ToCrimeReport(r *model.Report) CrimeReport {
	lat, lng := r.Location.Lat, r.Location.Lng
	priority := r.Priority
	if priority == "" {
		priority = PriorityForTrust(r.Trust)
	}
	mediaType := r.MediaType
	if mediaType != model.MediaVideo {
		mediaType = model.MediaPhoto
	}
	userID := r.UserID
	if userID == "" {
		userID = "anonymous"
	}
	c := CrimeReport{
		ID:          r.ID,
		UserID:      userID,
		Timestamp:   r.Timestamp,
		Location:    r.Location.Address,
		Description: r.Description,
		MediaURLs:   encodeMedia(r.Media),
		MediaType:   string(mediaType),
		Status:      StatusToCrime(r.Status),
		Priority:    string(priority),
		Category:    CategoryFor(r.EventType),
		Latitude:    &lat,
		Longitude:   &lng,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.VerifiedBy != nil {
		c.HumanVerification = &HumanVerification{
			IsVerified: r.Status == model.ReportVerified,
			Notes:      r.AnalystNotes,
			VerifiedBy: *r.VerifiedBy,
			VerifiedAt: r.UpdatedAt,
		}
	}
	if r.EscalatedTo != nil {
		c.Escalation = &CrimeEscalation{
			EscalatedTo: *r.EscalatedTo,
			Status:      EscalationPending,
			EscalatedAt: r.UpdatedAt,
		}
		if r.EscalationNotes != nil {
			c.Escalation.EscalationNotes = *r.EscalationNotes
		}
	}
	return c
}

func decodeMedia(s string) []string {
	media := []string{}
	if s == "" {
		return media
	}
	if err := json.Unmarshal([]byte(s), &media); err != nil || media == nil {
		return []string{}
	}
	return media
}

func encodeMedia(media []string) string {
	if media == nil {
		media = []string{}
	}
	b, _ := json.Marshal(media)
	return string(b)
}

// districtOf takes the last comma separated part of an address.
func districtOf(address string) string {
	parts := strings.Split(address, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
