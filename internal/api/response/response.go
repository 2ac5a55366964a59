package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/media"
	"github.com/edvin/civicwatch/internal/triage"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// PaginatedResponse wraps a list with pagination metadata.
type PaginatedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// WritePaginated writes a paginated JSON response.
func WritePaginated(w http.ResponseWriter, status int, items any, nextCursor string, hasMore bool) {
	WriteJSON(w, status, PaginatedResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// StatusFor maps a service error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	var te *triage.TransitionError
	switch {
	case errors.As(err, &te):
		return http.StatusConflict, te.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, triage.ErrIncidentClosed):
		return http.StatusConflict, triage.ErrIncidentClosed.Error()
	case errors.Is(err, triage.ErrInvalidTransition), errors.Is(err, core.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, triage.ErrInvalidTimestamp):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrInvalidPayload), errors.Is(err, triage.ErrUnknownAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// WriteServiceError writes err with the status StatusFor picks. Server
// errors are logged with the request logger.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	WriteError(w, status, msg)
}
