// Package memstore is an in-memory core.Store for tests and local
// development. Records are copied on every read and write.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
)

type Store struct {
	mu          sync.RWMutex
	reports     map[string]model.Report
	escalations map[string][]model.Escalation
	incidents   map[string]model.Incident
	byReport    map[string]string
	actions     map[string][]model.ActionEntry
	audit       []model.AuditEntry
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		reports:     make(map[string]model.Report),
		escalations: make(map[string][]model.Escalation),
		incidents:   make(map[string]model.Incident),
		byReport:    make(map[string]string),
		actions:     make(map[string][]model.ActionEntry),
	}
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) CreateReport(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; ok {
		return fmt.Errorf("report %s already exists", r.ID)
	}
	s.reports[r.ID] = copyReport(*r)
	return nil
}

func (s *Store) GetReport(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := copyReport(r)
	return &cp, nil
}

func (s *Store) ListReports(_ context.Context, q core.ReportQuery) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if q.Matches(&r) {
			all = append(all, copyReport(r))
		}
	}
	sort.Slice(all, func(i, j int) bool { return newer(all[i].CreatedAt, all[i].ID, all[j].CreatedAt, all[j].ID) })

	if q.Cursor != "" {
		c, ok := s.reports[q.Cursor]
		if !ok {
			return []model.Report{}, nil
		}
		i := sort.Search(len(all), func(i int) bool { return !newer(all[i].CreatedAt, all[i].ID, c.CreatedAt, c.ID) })
		for i < len(all) && all[i].ID == c.ID {
			i++
		}
		all = all[i:]
	}
	return limit(all, q.Limit), nil
}

func (s *Store) UpdateReport(_ context.Context, r *model.Report, expected model.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reports[r.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Status != expected {
		return core.ErrConflict
	}
	s.reports[r.ID] = copyReport(*r)
	return nil
}

func (s *Store) AppendMedia(_ context.Context, id string, urls []string, mediaType model.MediaType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return core.ErrNotFound
	}
	r = copyReport(r)
	r.Media = append(r.Media, urls...)
	if mediaType != "" {
		r.MediaType = mediaType
	}
	r.UpdatedAt = at
	s.reports[id] = r
	return nil
}

func (s *Store) CountReportsByStatus(context.Context) (map[model.ReportStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.ReportStatus]int)
	for _, r := range s.reports {
		counts[r.Status]++
	}
	return counts, nil
}

func (s *Store) CreateEscalation(_ context.Context, e *model.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[e.ReportID]; !ok {
		return core.ErrNotFound
	}
	s.escalations[e.ReportID] = append(s.escalations[e.ReportID], *e)
	return nil
}

func (s *Store) ListEscalations(_ context.Context, reportID string) ([]model.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Escalation{}, s.escalations[reportID]...), nil
}

func (s *Store) CreateIncident(_ context.Context, i *model.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[i.ID]; ok {
		return fmt.Errorf("incident %s already exists", i.ID)
	}
	if i.ReportID != "" {
		if _, ok := s.byReport[i.ReportID]; ok {
			return fmt.Errorf("incident for report %s already exists", i.ReportID)
		}
		s.byReport[i.ReportID] = i.ID
	}
	s.incidents[i.ID] = copyIncident(*i)
	return nil
}

func (s *Store) GetIncident(_ context.Context, id string) (*model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incidents[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := copyIncident(i)
	return &cp, nil
}

func (s *Store) GetIncidentByReport(ctx context.Context, reportID string) (*model.Incident, error) {
	s.mu.RLock()
	id, ok := s.byReport[reportID]
	s.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	return s.GetIncident(ctx, id)
}

func (s *Store) ListIncidents(_ context.Context, q core.IncidentQuery) ([]model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.Incident, 0, len(s.incidents))
	for _, i := range s.incidents {
		if q.Matches(&i) {
			all = append(all, copyIncident(i))
		}
	}
	sort.Slice(all, func(a, b int) bool { return newer(all[a].CreatedAt, all[a].ID, all[b].CreatedAt, all[b].ID) })

	if q.Cursor != "" {
		c, ok := s.incidents[q.Cursor]
		if !ok {
			return []model.Incident{}, nil
		}
		i := sort.Search(len(all), func(i int) bool { return !newer(all[i].CreatedAt, all[i].ID, c.CreatedAt, c.ID) })
		for i < len(all) && all[i].ID == c.ID {
			i++
		}
		all = all[i:]
	}
	return limit(all, q.Limit), nil
}

func (s *Store) UpdateIncident(_ context.Context, i *model.Incident, expected model.IncidentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.incidents[i.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Status != expected {
		return core.ErrConflict
	}
	s.incidents[i.ID] = copyIncident(*i)
	return nil
}

func (s *Store) AppendAction(_ context.Context, e *model.ActionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[e.IncidentID]; !ok {
		return core.ErrNotFound
	}
	s.actions[e.IncidentID] = append(s.actions[e.IncidentID], *e)
	return nil
}

func (s *Store) ListActions(_ context.Context, incidentID string) ([]model.ActionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ActionEntry{}, s.actions[incidentID]...), nil
}

func (s *Store) ListActionsByType(_ context.Context, action model.IncidentAction) ([]model.ActionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.ActionEntry{}
	for _, entries := range s.actions {
		for _, e := range entries {
			if e.Action == action {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertAudit(_ context.Context, e *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *e)
	return nil
}

// AuditEntries returns a snapshot of the audit log.
func (s *Store) AuditEntries() []model.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AuditEntry{}, s.audit...)
}

// newer orders by creation time descending, then ID descending.
func newer(at time.Time, id string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return id > bid
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n+1 {
		return items[:n+1]
	}
	return items
}

func copyReport(r model.Report) model.Report {
	r.Media = append([]string{}, r.Media...)
	r.VerifiedBy = copyString(r.VerifiedBy)
	r.EscalatedTo = copyString(r.EscalatedTo)
	r.EscalationNotes = copyString(r.EscalationNotes)
	return r
}

func copyIncident(i model.Incident) model.Incident {
	i.Media = append([]string{}, i.Media...)
	i.Resources = append([]string{}, i.Resources...)
	i.Contacts = append([]model.Contact(nil), i.Contacts...)
	i.EscalatedTo = copyString(i.EscalatedTo)
	if i.AffectedPopulation != nil {
		n := *i.AffectedPopulation
		i.AffectedPopulation = &n
	}
	return i
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
