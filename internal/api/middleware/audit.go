package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
)

const auditBuffer = 1024

// AuditLogger is an async audit log writer.
type AuditLogger struct {
	repo   core.AuditRepository
	logger zerolog.Logger
	ch     chan model.AuditEntry
	done   chan struct{}
}

func NewAuditLogger(repo core.AuditRepository, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		repo:   repo,
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan model.AuditEntry, auditBuffer),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		if err := al.repo.InsertAudit(context.Background(), &entry); err != nil {
			al.logger.Error().Err(err).Str("path", entry.Path).Msg("failed to write audit log")
		}
	}
}

// Close stops accepting entries and waits until the buffer is written.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware records mutating API requests with the acting identity.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut &&
			r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		// Multipart uploads are not buffered.
		var bodyBytes []byte
		if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		resourceType, resourceID := extractResource(r.URL.Path)
		entry := model.AuditEntry{
			ID:           platform.NewEntryID(),
			Actor:        Actor(r.Context()),
			Method:       r.Method,
			Path:         r.URL.Path,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			StatusCode:   sw.status,
			CreatedAt:    time.Now().UTC(),
		}
		if id := GetIdentity(r.Context()); id != nil {
			entry.Role = string(id.Role)
		}
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			entry.RequestBody = sanitizeBody(bodyBytes)
		}

		select {
		case al.ch <- entry:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

// actionSegments are verbs that follow a resource ID rather than naming a
// nested resource.
var actionSegments = map[string]bool{
	"review": true, "verify": true, "reject": true, "escalate": true,
	"media": true, "actions": true, "import": true,
}

// extractResource finds the resource type and ID in an API path.
// /api/v1/reports/abc/verify gives reports and abc.
func extractResource(path string) (*string, *string) {
	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")

	var resourceType, resourceID *string
	for i, part := range parts {
		if part == "" || actionSegments[part] {
			continue
		}
		p := part
		if i%2 == 0 {
			resourceType = &p
			resourceID = nil
		} else {
			resourceID = &p
		}
	}
	return resourceType, resourceID
}

var sensitiveFields = map[string]bool{
	"password": true, "token": true, "access_token": true, "secret": true,
	"phone": true, "user_id": true,
}

func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}
	for k := range data {
		if sensitiveFields[k] {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return sanitized
}
