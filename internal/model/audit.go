package model

import (
	"encoding/json"
	"time"
)

// AuditEntry records one mutating API call.
type AuditEntry struct {
	ID           string          `json:"id" db:"id"`
	Actor        string          `json:"actor" db:"actor"`
	Role         string          `json:"role" db:"role"`
	Method       string          `json:"method" db:"method"`
	Path         string          `json:"path" db:"path"`
	ResourceType *string         `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty" db:"resource_id"`
	StatusCode   int             `json:"status_code" db:"status_code"`
	RequestBody  json.RawMessage `json:"request_body,omitempty" db:"request_body"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
