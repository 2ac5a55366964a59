package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/adapter"
	"github.com/edvin/civicwatch/internal/metrics"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/triage"
)

// ReportService implements analyst triage over a report repository.
type ReportService struct {
	reports   ReportRepository
	incidents IncidentRepository
	router    *triage.Router
	pub       realtime.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewReportService(reports ReportRepository, incidents IncidentRepository, opts Options) *ReportService {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReportService{
		reports:   reports,
		incidents: incidents,
		router:    triage.NewRouter(),
		pub:       opts.Publisher,
		now:       opts.Now,
		logger:    opts.Logger.With().Str("component", "report-service").Logger(),
	}
}

// Departments lists the escalation targets.
func (s *ReportService) Departments() []string { return s.router.Departments() }

// Create stores a new report. The status is always new; a zero observation
// time is replaced with the current time.
func (s *ReportService) Create(ctx context.Context, r *model.Report) error {
	now := s.now()
	r.ID = platform.NewReportID()
	r.Status = model.ReportNew
	r.VerifiedBy = nil
	r.EscalatedTo = nil
	r.EscalationNotes = nil
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.Media == nil {
		r.Media = []string{}
	}
	if r.Priority == "" {
		r.Priority = adapter.PriorityForTrust(r.Trust)
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.reports.CreateReport(ctx, r); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	s.pub.Publish(realtime.ReportEvent(realtime.EventNewReport, r, now))
	return nil
}

// Get returns a report by ID.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return r, nil
}

// List returns one page of reports matching q and whether another page exists.
func (s *ReportService) List(ctx context.Context, q ReportQuery) ([]model.Report, bool, error) {
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	rows, err := s.reports.ListReports(ctx, q)
	if err != nil {
		return nil, false, fmt.Errorf("list reports: %w", err)
	}
	rows = triage.Select(rows, func(r model.Report) bool { return q.Matches(&r) })
	items, hasMore := page(rows, q.Limit)
	return items, hasMore, nil
}

// Review moves a new report into review.
func (s *ReportService) Review(ctx context.Context, id, actor string) (*model.Report, error) {
	r, _, err := s.apply(ctx, id, model.ActionReview, actor, "")
	return r, err
}

// Verify marks a report verified and returns it with its incident. The
// incident is created on the first verification, or on a repeat when an
// earlier attempt failed to store it.
func (s *ReportService) Verify(ctx context.Context, id, actor, notes string) (*model.Report, *model.Incident, error) {
	return s.apply(ctx, id, model.ActionVerify, actor, notes)
}

// Reject marks a report rejected.
func (s *ReportService) Reject(ctx context.Context, id, actor, notes string) (*model.Report, error) {
	r, _, err := s.apply(ctx, id, model.ActionReject, actor, notes)
	return r, err
}

func (s *ReportService) apply(ctx context.Context, id string, action model.ReportAction, actor, notes string) (*model.Report, *model.Incident, error) {
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get report %s: %w", id, err)
	}

	prev := r.Status
	next, changed, err := triage.ApplyReportAction(prev, action)
	if err != nil {
		metrics.ReportTransitions.WithLabelValues(string(action), "rejected").Inc()
		return nil, nil, err
	}
	if !changed {
		metrics.ReportTransitions.WithLabelValues(string(action), "noop").Inc()
		if r.Status != model.ReportVerified {
			return r, nil, nil
		}
		// A verified report whose incident write failed gets it on retry.
		inc, err := s.spawnIncident(ctx, r, s.now())
		if err != nil {
			return r, nil, err
		}
		return r, inc, nil
	}

	now := s.now()
	r.Status = next
	r.UpdatedAt = now
	if action != model.ActionReview {
		if actor != "" {
			r.VerifiedBy = &actor
		}
		if notes != "" {
			r.AnalystNotes = notes
		}
	}

	if err := s.reports.UpdateReport(ctx, r, prev); err != nil {
		return nil, nil, fmt.Errorf("%s report %s: %w", action, id, err)
	}
	metrics.ReportTransitions.WithLabelValues(string(action), "changed").Inc()
	s.logger.Info().Str("report_id", id).Str("action", string(action)).
		Str("from", string(prev)).Str("to", string(next)).Str("actor", actor).Msg("report transition")
	s.pub.Publish(realtime.ReportEvent(realtime.EventReportUpdated, r, now))

	var inc *model.Incident
	if triage.SpawnsIncident(prev, next) {
		inc, err = s.spawnIncident(ctx, r, now)
		if err != nil {
			return r, nil, err
		}
	}
	return r, inc, nil
}

// spawnIncident creates the incident for a newly verified report unless one
// already exists.
func (s *ReportService) spawnIncident(ctx context.Context, r *model.Report, now time.Time) (*model.Incident, error) {
	existing, err := s.incidents.GetIncidentByReport(ctx, r.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find incident for report %s: %w", r.ID, err)
	}

	inc := adapter.IncidentFromReport(r)
	inc.ID = platform.NewIncidentID()
	inc.CreatedAt = now
	inc.UpdatedAt = now
	if err := s.incidents.CreateIncident(ctx, &inc); err != nil {
		return nil, fmt.Errorf("create incident for report %s: %w", r.ID, err)
	}
	s.pub.Publish(realtime.IncidentEvent(realtime.EventIncidentCreated, &inc, now))
	return &inc, nil
}

// Escalate routes a report to its department. A report that is not yet
// verified is verified first; a rejected report cannot be escalated.
func (s *ReportService) Escalate(ctx context.Context, id, actor, notes string) (*model.Report, *model.Escalation, error) {
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get report %s: %w", id, err)
	}
	if r.Status == model.ReportRejected {
		return nil, nil, &triage.TransitionError{Action: "escalate", From: string(r.Status), Kind: "report"}
	}
	if r.Status != model.ReportVerified {
		if r, _, err = s.apply(ctx, id, model.ActionVerify, actor, ""); err != nil {
			return nil, nil, err
		}
	}

	now := s.now()
	esc := s.router.Record(r.ID, r.EventType, actor, notes, now)
	if err := s.reports.CreateEscalation(ctx, &esc); err != nil {
		return nil, nil, fmt.Errorf("record escalation for report %s: %w", id, err)
	}

	r.EscalatedTo = &esc.Department
	r.EscalationNotes = &esc.Notes
	r.UpdatedAt = now
	if err := s.reports.UpdateReport(ctx, r, model.ReportVerified); err != nil {
		return nil, nil, fmt.Errorf("escalate report %s: %w", id, err)
	}
	metrics.EscalationsTotal.WithLabelValues(esc.Department).Inc()
	s.logger.Info().Str("report_id", id).Str("department", esc.Department).Str("actor", actor).Msg("report escalated")
	s.pub.Publish(realtime.ReportEvent(realtime.EventReportUpdated, r, now))

	if err := s.escalateIncident(ctx, r, esc.Department, now); err != nil {
		return r, &esc, err
	}
	return r, &esc, nil
}

// escalateIncident records the department on the report's incident,
// creating the incident if the verified report has none.
func (s *ReportService) escalateIncident(ctx context.Context, r *model.Report, department string, now time.Time) error {
	inc, err := s.spawnIncident(ctx, r, now)
	if err != nil {
		return err
	}
	if inc.Status == model.IncidentClosed {
		return nil
	}
	inc.EscalatedTo = &department
	inc.Contacts = append(inc.Contacts, adapter.DepartmentContact(department))
	inc.UpdatedAt = now
	if err := s.incidents.UpdateIncident(ctx, inc, inc.Status); err != nil {
		return fmt.Errorf("escalate incident %s: %w", inc.ID, err)
	}
	s.pub.Publish(realtime.IncidentEvent(realtime.EventIncidentUpdated, inc, now))
	return nil
}

// Escalations returns the escalation history of a report, oldest first.
func (s *ReportService) Escalations(ctx context.Context, id string) ([]model.Escalation, error) {
	if _, err := s.reports.GetReport(ctx, id); err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	es, err := s.reports.ListEscalations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list escalations for report %s: %w", id, err)
	}
	return es, nil
}

// AttachMedia appends uploaded evidence URLs to a report.
func (s *ReportService) AttachMedia(ctx context.Context, id string, urls []string, mediaType model.MediaType) (*model.Report, error) {
	now := s.now()
	if err := s.reports.AppendMedia(ctx, id, urls, mediaType, now); err != nil {
		return nil, fmt.Errorf("attach media to report %s: %w", id, err)
	}
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	s.pub.Publish(realtime.ReportEvent(realtime.EventReportUpdated, r, now))
	return r, nil
}

// ImportResult summarises a bulk import of relational records.
type ImportResult struct {
	Imported          int      `json:"imported"`
	Incidents         int      `json:"incidents"`
	UnknownCategories []string `json:"unknown_categories,omitempty"`
}

// Import stores relational crime reports as they are, keeping their IDs and
// statuses. Records with unmapped categories are kept and reported. Verified
// records get their incident.
func (s *ReportService) Import(ctx context.Context, rows []adapter.CrimeReport) (*ImportResult, error) {
	res := &ImportResult{}
	now := s.now()
	for _, row := range rows {
		if row.ID == "" {
			row.ID = platform.NewReportID()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = row.CreatedAt
		}
		r, err := adapter.FromCrimeReport(row)
		if errors.Is(err, triage.ErrUnknownCategory) {
			s.logger.Warn().Str("report_id", row.ID).Str("category", row.Category).Msg("importing report with unknown category")
			res.UnknownCategories = append(res.UnknownCategories, row.Category)
		} else if err != nil {
			return res, fmt.Errorf("import report %s: %w", row.ID, err)
		}
		if err := s.reports.CreateReport(ctx, &r); err != nil {
			return res, fmt.Errorf("import report %s: %w", r.ID, err)
		}
		res.Imported++

		if r.Status != model.ReportVerified {
			continue
		}
		// The category error was already recorded above.
		inc, _ := adapter.IncidentFromCrimeReport(row)
		inc.ID = platform.NewIncidentID()
		inc.CreatedAt = r.UpdatedAt
		inc.UpdatedAt = r.UpdatedAt
		if err := s.incidents.CreateIncident(ctx, &inc); err != nil {
			return res, fmt.Errorf("import incident for report %s: %w", r.ID, err)
		}
		res.Incidents++
	}
	return res, nil
}
