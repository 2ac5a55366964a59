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
)

type Report struct {
	svc *core.ReportService
}

func NewReport(svc *core.ReportService) *Report {
	return &Report{svc: svc}
}

// List godoc
//
//	@Summary		List reports
//	@Description	Returns a page of reports, newest first. shape=legacy or shape=crime returns the stored representations instead of the canonical one.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			event_type		query		string	false	"Event type or all"
//	@Param			min_trust		query		number	false	"Minimum trust, 0-1"
//	@Param			time_window		query		string	false	"Hours, 24h, 1w, 1m, 6m or all"
//	@Param			verified_only	query		bool	false	"Only verified reports"
//	@Param			status			query		string	false	"Filter by status"
//	@Param			priority		query		string	false	"Filter by priority"
//	@Param			search			query		string	false	"Match description, address or ID"
//	@Param			bbox			query		string	false	"north,south,east,west"
//	@Param			shape			query		string	false	"canonical, legacy or crime"
//	@Param			limit			query		int		false	"Page size"	default(50)
//	@Param			cursor			query		string	false	"Pagination cursor"
//	@Success		200				{object}	response.PaginatedResponse{items=[]model.Report}
//	@Failure		400				{object}	response.ErrorResponse
//	@Router			/reports [get]
func (h *Report) List(w http.ResponseWriter, r *http.Request) {
	q, ok := reportQuery(w, r)
	if !ok {
		return
	}

	reports, hasMore, err := h.svc.List(r.Context(), q)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	var nextCursor string
	if hasMore && len(reports) > 0 {
		nextCursor = reports[len(reports)-1].ID
	}

	switch r.URL.Query().Get("shape") {
	case "", "canonical":
		response.WritePaginated(w, http.StatusOK, reports, nextCursor, hasMore)
	case "legacy":
		out := make([]adapter.LegacyReport, len(reports))
		for i := range reports {
			out[i] = adapter.ToLegacy(&reports[i])
		}
		response.WritePaginated(w, http.StatusOK, out, nextCursor, hasMore)
	case "crime":
		out := make([]adapter.CrimeReport, len(reports))
		for i := range reports {
			out[i] = adapter.ToCrimeReport(&reports[i])
		}
		response.WritePaginated(w, http.StatusOK, out, nextCursor, hasMore)
	default:
		response.WriteError(w, http.StatusBadRequest, "shape must be canonical, legacy or crime")
	}
}

func reportQuery(w http.ResponseWriter, r *http.Request) (core.ReportQuery, bool) {
	params := request.ParseListParams(r)
	f, err := request.ParseFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return core.ReportQuery{}, false
	}
	status, ok := request.ReportStatus(params.Status)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "unknown status "+params.Status)
		return core.ReportQuery{}, false
	}
	priority, ok := request.ReportPriority(r.URL.Query().Get("priority"))
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "unknown priority "+r.URL.Query().Get("priority"))
		return core.ReportQuery{}, false
	}
	bbox, err := request.ParseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return core.ReportQuery{}, false
	}
	return core.ReportQuery{
		Filter:   f,
		Status:   status,
		Priority: priority,
		Search:   params.Search,
		BBox:     bbox,
		Limit:    params.Limit,
		Cursor:   params.Cursor,
	}, true
}

// Create godoc
//
//	@Summary		Submit a report
//	@Description	Stores a citizen report with status new. A missing timestamp means now.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			body	body		request.CreateReport	true	"Report"
//	@Success		201		{object}	model.Report
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		422		{object}	response.ErrorResponse
//	@Router			/reports [post]
func (h *Report) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateReport
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := req.Report()
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if err := h.svc.Create(r.Context(), report); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, report)
}

// Get godoc
//
//	@Summary		Get a report
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Report ID"
//	@Success		200	{object}	model.Report
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/reports/{id} [get]
func (h *Report) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}

// Review godoc
//
//	@Summary		Start reviewing a report
//	@Description	Moves a new report to in_review. Repeating it on a report in review is a no-op.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Report ID"
//	@Success		200	{object}	model.Report
//	@Failure		409	{object}	response.ErrorResponse
//	@Router			/reports/{id}/review [post]
func (h *Report) Review(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.Review(r.Context(), id, mw.Actor(r.Context()))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}

// VerifyResponse is returned by verify; Incident is set once the report has one.
type VerifyResponse struct {
	Report   *model.Report   `json:"report"`
	Incident *model.Incident `json:"incident,omitempty"`
}

// Verify godoc
//
//	@Summary		Verify a report
//	@Description	Marks the report verified and creates its incident on the first verification.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Report ID"
//	@Param			body	body		request.TriageReport	false	"Analyst notes"
//	@Success		200		{object}	VerifyResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/reports/{id}/verify [post]
func (h *Report) Verify(w http.ResponseWriter, r *http.Request) {
	id, req, ok := triageRequest(w, r)
	if !ok {
		return
	}
	report, inc, err := h.svc.Verify(r.Context(), id, mw.Actor(r.Context()), req.Notes)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, VerifyResponse{Report: report, Incident: inc})
}

// Reject godoc
//
//	@Summary		Reject a report
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Report ID"
//	@Param			body	body		request.TriageReport	false	"Analyst notes"
//	@Success		200		{object}	model.Report
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/reports/{id}/reject [post]
func (h *Report) Reject(w http.ResponseWriter, r *http.Request) {
	id, req, ok := triageRequest(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Reject(r.Context(), id, mw.Actor(r.Context()), req.Notes)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}

type EscalateResponse struct {
	Report     *model.Report     `json:"report"`
	Escalation *model.Escalation `json:"escalation"`
}

// Escalate godoc
//
//	@Summary		Escalate a report
//	@Description	Routes the report to the department for its event type, verifying it first if needed.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Report ID"
//	@Param			body	body		request.TriageReport	false	"Escalation notes"
//	@Success		200		{object}	EscalateResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/reports/{id}/escalate [post]
func (h *Report) Escalate(w http.ResponseWriter, r *http.Request) {
	id, req, ok := triageRequest(w, r)
	if !ok {
		return
	}
	report, esc, err := h.svc.Escalate(r.Context(), id, mw.Actor(r.Context()), req.Notes)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, EscalateResponse{Report: report, Escalation: esc})
}

// Escalations godoc
//
//	@Summary		List escalations of a report
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Report ID"
//	@Success		200	{array}		model.Escalation
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/reports/{id}/escalations [get]
func (h *Report) Escalations(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	escalations, err := h.svc.Escalations(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, escalations)
}

// Departments godoc
//
//	@Summary		List escalation departments
//	@Tags			Reports
//	@Security		BearerAuth
//	@Success		200	{array}	string
//	@Router			/departments [get]
func (h *Report) Departments(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.svc.Departments())
}

// Import godoc
//
//	@Summary		Import relational reports
//	@Description	Stores crime reports in the relational shape, keeping IDs and statuses. Unknown categories are kept and listed.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Param			body	body		request.ImportReports	true	"Reports"
//	@Success		200		{object}	core.ImportResult
//	@Failure		400		{object}	response.ErrorResponse
//	@Router			/reports/import [post]
func (h *Report) Import(w http.ResponseWriter, r *http.Request) {
	var req request.ImportReports
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Import(r.Context(), req.Reports)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func triageRequest(w http.ResponseWriter, r *http.Request) (string, request.TriageReport, bool) {
	var req request.TriageReport
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return "", req, false
	}
	if err := request.DecodeOptional(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return "", req, false
	}
	return id, req, true
}
