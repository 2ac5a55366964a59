package pgstore

import (
	"context"
	"fmt"

	"github.com/edvin/civicwatch/internal/model"
)

func (s *Store) InsertAudit(ctx context.Context, e *model.AuditEntry) error {
	var body []byte
	if len(e.RequestBody) > 0 {
		body = e.RequestBody
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, actor, role, method, path, resource_type, resource_id, status_code, request_body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Actor, e.Role, e.Method, e.Path, e.ResourceType, e.ResourceID, e.StatusCode, body, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
