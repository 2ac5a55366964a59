package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/civicwatch/internal/adapter"
	mw "github.com/edvin/civicwatch/internal/api/middleware"
	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/sop"
)

type Incident struct {
	svc *core.IncidentService
}

func NewIncident(svc *core.IncidentService) *Incident {
	return &Incident{svc: svc}
}

// List godoc
//
//	@Summary		List incidents
//	@Description	Returns a page of incidents, newest first. shape=map returns the map-display representation.
//	@Tags			Incidents
//	@Security		BearerAuth
//	@Param			event_type	query		string	false	"Event type or all"
//	@Param			min_trust	query		number	false	"Minimum confidence, 0-1"
//	@Param			time_window	query		string	false	"Hours, 24h, 1w, 1m, 6m or all"
//	@Param			status		query		string	false	"Filter by status"
//	@Param			severity	query		string	false	"Filter by severity"
//	@Param			search		query		string	false	"Match title, description or address"
//	@Param			shape		query		string	false	"canonical or map"
//	@Param			limit		query		int		false	"Page size"	default(50)
//	@Param			cursor		query		string	false	"Pagination cursor"
//	@Success		200			{object}	response.PaginatedResponse{items=[]model.Incident}
//	@Failure		400			{object}	response.ErrorResponse
//	@Router			/incidents [get]
func (h *Incident) List(w http.ResponseWriter, r *http.Request) {
	q, ok := incidentQuery(w, r)
	if !ok {
		return
	}

	incidents, hasMore, err := h.svc.List(r.Context(), q)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	var nextCursor string
	if hasMore && len(incidents) > 0 {
		nextCursor = incidents[len(incidents)-1].ID
	}

	switch r.URL.Query().Get("shape") {
	case "", "canonical":
		response.WritePaginated(w, http.StatusOK, incidents, nextCursor, hasMore)
	case "map":
		out := make([]adapter.MapIncident, len(incidents))
		for i := range incidents {
			out[i] = adapter.ToMapIncident(&incidents[i])
		}
		response.WritePaginated(w, http.StatusOK, out, nextCursor, hasMore)
	default:
		response.WriteError(w, http.StatusBadRequest, "shape must be canonical or map")
	}
}

func incidentQuery(w http.ResponseWriter, r *http.Request) (core.IncidentQuery, bool) {
	params := request.ParseListParams(r)
	f, err := request.ParseFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return core.IncidentQuery{}, false
	}
	status, ok := request.IncidentStatus(params.Status)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "unknown status "+params.Status)
		return core.IncidentQuery{}, false
	}
	severity, ok := request.IncidentSeverity(r.URL.Query().Get("severity"))
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "unknown severity "+r.URL.Query().Get("severity"))
		return core.IncidentQuery{}, false
	}
	return core.IncidentQuery{
		Filter:   f,
		Status:   status,
		Severity: severity,
		Search:   params.Search,
		Limit:    params.Limit,
		Cursor:   params.Cursor,
	}, true
}

// Get godoc
//
//	@Summary		Get an incident
//	@Tags			Incidents
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Incident ID"
//	@Success		200	{object}	model.Incident
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/incidents/{id} [get]
func (h *Incident) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	inc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, inc)
}

// Actions godoc
//
//	@Summary		List incident actions
//	@Description	Returns the action log of an incident, oldest first.
//	@Tags			Incidents
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Incident ID"
//	@Success		200	{array}		model.ActionEntry
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/incidents/{id}/actions [get]
func (h *Incident) Actions(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.svc.Actions(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

// Apply godoc
//
//	@Summary		Apply an authority action
//	@Description	Applies acknowledge, dispatch, publish, escalate or close. Any action on a closed incident is rejected.
//	@Tags			Incidents
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Incident ID"
//	@Param			body	body		request.ApplyIncidentAction	true	"Action and payload"
//	@Success		200		{object}	model.Incident
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/incidents/{id}/actions [post]
func (h *Incident) Apply(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.ApplyIncidentAction
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	inc, err := h.svc.Apply(r.Context(), id, model.IncidentAction(req.Action), mw.Actor(r.Context()), req.Payload)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, inc)
}

// ProcedureResponse wraps the SOP matched for an incident. Exact is false
// when the catalog's fallback procedure was used.
type ProcedureResponse struct {
	Procedure *sop.Procedure `json:"procedure"`
	Exact     bool           `json:"exact"`
}

// Procedure godoc
//
//	@Summary		Get the incident's standard operating procedure
//	@Tags			Incidents
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Incident ID"
//	@Success		200	{object}	ProcedureResponse
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/incidents/{id}/procedure [get]
func (h *Incident) Procedure(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, exact, err := h.svc.Procedure(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ProcedureResponse{Procedure: p, Exact: exact})
}
