package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
)

const incidentColumns = `id, report_id, title, event_type, latitude, longitude, address, district, state,
	observed_at, description, media, severity, confidence, status, validation_evidence,
	analyst_notes, affected_population, contacts, resources, escalated_to, created_at, updated_at`

func scanIncident(row pgx.Row) (*model.Incident, error) {
	var i model.Incident
	err := row.Scan(&i.ID, &i.ReportID, &i.Title, &i.EventType, &i.Location.Lat, &i.Location.Lng,
		&i.Location.Address, &i.Location.District, &i.Location.State,
		&i.Timestamp, &i.Description, &i.Media, &i.Severity, &i.Confidence, &i.Status,
		&i.ValidationEvidence, &i.AnalystNotes, &i.AffectedPopulation, &i.Contacts, &i.Resources,
		&i.EscalatedTo, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if i.Media == nil {
		i.Media = []string{}
	}
	return &i, nil
}

func (s *Store) CreateIncident(ctx context.Context, i *model.Incident) error {
	media := i.Media
	if media == nil {
		media = []string{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO incidents (`+incidentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		i.ID, i.ReportID, i.Title, i.EventType, i.Location.Lat, i.Location.Lng,
		i.Location.Address, i.Location.District, i.Location.State,
		i.Timestamp, i.Description, media, i.Severity, i.Confidence, i.Status,
		i.ValidationEvidence, i.AnalystNotes, i.AffectedPopulation, i.Contacts, i.Resources,
		i.EscalatedTo, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	i, err := scanIncident(s.db.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

func (s *Store) GetIncidentByReport(ctx context.Context, reportID string) (*model.Incident, error) {
	i, err := scanIncident(s.db.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE report_id = $1`, reportID))
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

func (s *Store) ListIncidents(ctx context.Context, q core.IncidentQuery) ([]model.Incident, error) {
	w := &where{}
	w.addFilter(q.Filter, q.Now, "confidence", false)
	if q.Status != "" {
		w.add("status = ?", q.Status)
	}
	if q.Severity != "" {
		w.add("severity = ?", q.Severity)
	}
	if q.Search != "" {
		w.add(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR address ILIKE ? ESCAPE '\')`, containsPattern(q.Search))
	}
	w.addCursor("incidents", q.Cursor)

	query := `SELECT ` + incidentColumns + ` FROM incidents` + w.sql() + ` ORDER BY created_at DESC, id DESC`
	query += w.addLimit(q.Limit)

	rows, err := s.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	out := []model.Incident{}
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIncident(ctx context.Context, i *model.Incident, expected model.IncidentStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE incidents SET status = $3, severity = $4, analyst_notes = $5, contacts = $6,
		        resources = $7, escalated_to = $8, affected_population = $9, updated_at = $10
		 WHERE id = $1 AND status = $2`,
		i.ID, expected, i.Status, i.Severity, i.AnalystNotes, i.Contacts,
		i.Resources, i.EscalatedTo, i.AffectedPopulation, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrConflict(ctx, "incidents", i.ID)
	}
	return nil
}

const actionColumns = `id, incident_id, action, actor, from_status, to_status, payload, created_at`

func (s *Store) AppendAction(ctx context.Context, e *model.ActionEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO incident_actions (`+actionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.IncidentID, e.Action, e.Actor, e.FromStatus, e.ToStatus, []byte(e.Payload), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident action: %w", err)
	}
	return nil
}

func (s *Store) ListActions(ctx context.Context, incidentID string) ([]model.ActionEntry, error) {
	return s.queryActions(ctx,
		`SELECT `+actionColumns+` FROM incident_actions WHERE incident_id = $1 ORDER BY created_at, id`, incidentID)
}

func (s *Store) ListActionsByType(ctx context.Context, action model.IncidentAction) ([]model.ActionEntry, error) {
	return s.queryActions(ctx,
		`SELECT `+actionColumns+` FROM incident_actions WHERE action = $1 ORDER BY created_at, id`, action)
}

func (s *Store) queryActions(ctx context.Context, sql string, arg any) ([]model.ActionEntry, error) {
	rows, err := s.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query incident actions: %w", err)
	}
	defer rows.Close()

	out := []model.ActionEntry{}
	for rows.Next() {
		var e model.ActionEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.Action, &e.Actor, &e.FromStatus, &e.ToStatus, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident action: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
