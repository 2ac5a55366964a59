package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
)

const reportColumns = `id, event_type, description, latitude, longitude, address, district, state,
	observed_at, trust, priority, status, media, media_type, user_id, verified_by,
	analyst_notes, escalated_to, escalation_notes, created_at, updated_at`

func scanReport(row pgx.Row) (*model.Report, error) {
	var r model.Report
	err := row.Scan(&r.ID, &r.EventType, &r.Description, &r.Location.Lat, &r.Location.Lng,
		&r.Location.Address, &r.Location.District, &r.Location.State,
		&r.Timestamp, &r.Trust, &r.Priority, &r.Status, &r.Media, &r.MediaType, &r.UserID,
		&r.VerifiedBy, &r.AnalystNotes, &r.EscalatedTo, &r.EscalationNotes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.Media == nil {
		r.Media = []string{}
	}
	return &r, nil
}

func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	media := r.Media
	if media == nil {
		media = []string{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		r.ID, r.EventType, r.Description, r.Location.Lat, r.Location.Lng,
		r.Location.Address, r.Location.District, r.Location.State,
		r.Timestamp, r.Trust, r.Priority, r.Status, media, r.MediaType, r.UserID,
		r.VerifiedBy, r.AnalystNotes, r.EscalatedTo, r.EscalationNotes, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context, q core.ReportQuery) ([]model.Report, error) {
	w := &where{}
	w.addFilter(q.Filter, q.Now, "trust", true)
	if q.Status != "" {
		w.add("status = ?", q.Status)
	}
	if q.Priority != "" {
		w.add("priority = ?", q.Priority)
	}
	if q.Search != "" {
		w.add(`(description ILIKE ? ESCAPE '\' OR address ILIKE ? ESCAPE '\' OR id ILIKE ? ESCAPE '\')`, containsPattern(q.Search))
	}
	if b := q.BBox; b != nil {
		w.add("latitude <= ?", b.North)
		w.add("latitude >= ?", b.South)
		w.add("longitude <= ?", b.East)
		w.add("longitude >= ?", b.West)
	}
	w.addCursor("reports", q.Cursor)

	query := `SELECT ` + reportColumns + ` FROM reports` + w.sql() + ` ORDER BY created_at DESC, id DESC`
	query += w.addLimit(q.Limit)

	rows, err := s.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := []model.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateReport(ctx context.Context, r *model.Report, expected model.ReportStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE reports SET status = $3, priority = $4, verified_by = $5, analyst_notes = $6,
		        escalated_to = $7, escalation_notes = $8, updated_at = $9
		 WHERE id = $1 AND status = $2`,
		r.ID, expected, r.Status, r.Priority, r.VerifiedBy, r.AnalystNotes,
		r.EscalatedTo, r.EscalationNotes, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrConflict(ctx, "reports", r.ID)
	}
	return nil
}

// missingOrConflict explains a compare-and-set update that touched no row.
func (s *Store) missingOrConflict(ctx context.Context, table, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %s: %w", table, id, err)
	}
	if !exists {
		return core.ErrNotFound
	}
	return core.ErrConflict
}

func (s *Store) AppendMedia(ctx context.Context, id string, urls []string, mediaType model.MediaType, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE reports SET media = media || $2::jsonb,
		        media_type = COALESCE(NULLIF($3, ''), media_type), updated_at = $4
		 WHERE id = $1`,
		id, urls, string(mediaType), at,
	)
	if err != nil {
		return fmt.Errorf("append report media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, count(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count reports by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ReportStatus]int)
	for rows.Next() {
		var status model.ReportStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) CreateEscalation(ctx context.Context, e *model.Escalation) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO escalations (id, report_id, department, escalated_by, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.ReportID, e.Department, e.EscalatedBy, e.Notes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (s *Store) ListEscalations(ctx context.Context, reportID string) ([]model.Escalation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, report_id, department, escalated_by, notes, created_at
		 FROM escalations WHERE report_id = $1 ORDER BY created_at, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	out := []model.Escalation{}
	for rows.Next() {
		var e model.Escalation
		if err := rows.Scan(&e.ID, &e.ReportID, &e.Department, &e.EscalatedBy, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
