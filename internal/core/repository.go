package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

var (
	// ErrNotFound is returned by repositories for a missing record.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a compare-and-set update finds the record
	// in a different status than expected.
	ErrConflict = errors.New("record was modified concurrently")
)

// BBox is a map viewport in degrees.
type BBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether loc lies inside the box, edges included.
func (b BBox) Contains(loc model.Location) bool {
	return loc.Lat <= b.North && loc.Lat >= b.South && loc.Lng <= b.East && loc.Lng >= b.West
}

// ReportQuery selects reports. Stores push the predicates down where they
// can; services re-apply them in memory. Limit <= 0 means no limit.
type ReportQuery struct {
	Filter   triage.Filter
	Now      time.Time
	Status   model.ReportStatus
	Priority model.Priority
	Search   string
	BBox     *BBox
	Limit    int
	Cursor   string
}

// Matches evaluates every predicate of the query except pagination.
func (q ReportQuery) Matches(r *model.Report) bool {
	if !q.Filter.MatchesReport(r, q.Now) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Priority != "" && r.Priority != q.Priority {
		return false
	}
	if q.BBox != nil && !q.BBox.Contains(r.Location) {
		return false
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(r.Description), s) &&
			!strings.Contains(strings.ToLower(r.Location.Address), s) &&
			!strings.Contains(strings.ToLower(r.ID), s) {
			return false
		}
	}
	return true
}

// IncidentQuery selects incidents.
type IncidentQuery struct {
	Filter   triage.Filter
	Now      time.Time
	Status   model.IncidentStatus
	Severity model.Severity
	Search   string
	Limit    int
	Cursor   string
}

// Matches evaluates every predicate of the query except pagination.
func (q IncidentQuery) Matches(i *model.Incident) bool {
	if !q.Filter.MatchesIncident(i, q.Now) {
		return false
	}
	if q.Status != "" && i.Status != q.Status {
		return false
	}
	if q.Severity != "" && i.Severity != q.Severity {
		return false
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(i.Title), s) &&
			!strings.Contains(strings.ToLower(i.Description), s) &&
			!strings.Contains(strings.ToLower(i.Location.Address), s) {
			return false
		}
	}
	return true
}

// ReportRepository persists reports and their escalations. List methods
// return records newest first; with a limit they return up to Limit+1 rows
// so callers can detect another page.
type ReportRepository interface {
	CreateReport(ctx context.Context, r *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, q ReportQuery) ([]model.Report, error)
	// UpdateReport writes r only if the stored status still equals expected.
	UpdateReport(ctx context.Context, r *model.Report, expected model.ReportStatus) error
	AppendMedia(ctx context.Context, id string, urls []string, mediaType model.MediaType, at time.Time) error
	CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error)
	CreateEscalation(ctx context.Context, e *model.Escalation) error
	ListEscalations(ctx context.Context, reportID string) ([]model.Escalation, error)
}

// IncidentRepository persists incidents and their action log.
type IncidentRepository interface {
	CreateIncident(ctx context.Context, i *model.Incident) error
	GetIncident(ctx context.Context, id string) (*model.Incident, error)
	GetIncidentByReport(ctx context.Context, reportID string) (*model.Incident, error)
	ListIncidents(ctx context.Context, q IncidentQuery) ([]model.Incident, error)
	// UpdateIncident writes i only if the stored status still equals expected.
	UpdateIncident(ctx context.Context, i *model.Incident, expected model.IncidentStatus) error
	AppendAction(ctx context.Context, e *model.ActionEntry) error
	ListActions(ctx context.Context, incidentID string) ([]model.ActionEntry, error)
	ListActionsByType(ctx context.Context, action model.IncidentAction) ([]model.ActionEntry, error)
}

// AuditRepository stores API audit entries.
type AuditRepository interface {
	InsertAudit(ctx context.Context, e *model.AuditEntry) error
}

// Store is implemented by every storage backend.
type Store interface {
	ReportRepository
	IncidentRepository
	AuditRepository
	Close(ctx context.Context) error
}
