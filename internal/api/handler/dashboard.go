package handler

import (
	"net/http"

	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/core"
)

type Dashboard struct {
	svc *core.DashboardService
}

func NewDashboard(svc *core.DashboardService) *Dashboard {
	return &Dashboard{svc: svc}
}

// Analyst godoc
//
//	@Summary		Analyst dashboard counters
//	@Tags			Dashboard
//	@Security		BearerAuth
//	@Success		200	{object}	core.AnalystKPIs
//	@Failure		500	{object}	response.ErrorResponse
//	@Router			/dashboard/analyst [get]
func (h *Dashboard) Analyst(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.svc.AnalystKPIs(r.Context())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, kpis)
}

// Authority godoc
//
//	@Summary		Authority dashboard counters
//	@Tags			Dashboard
//	@Security		BearerAuth
//	@Success		200	{object}	core.AuthorityKPIs
//	@Failure		500	{object}	response.ErrorResponse
//	@Router			/dashboard/authority [get]
func (h *Dashboard) Authority(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.svc.AuthorityKPIs(r.Context())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, kpis)
}

// Heatmap godoc
//
//	@Summary		Heatmap points
//	@Description	Returns trust-decayed intensities of the reports matching the filter, clamped to 0-1.
//	@Tags			Dashboard
//	@Security		BearerAuth
//	@Param			event_type		query		string	false	"Event type or all"
//	@Param			min_trust		query		number	false	"Minimum trust, 0-1"
//	@Param			time_window		query		string	false	"Hours, 24h, 1w, 1m, 6m or all"
//	@Param			verified_only	query		bool	false	"Only verified reports"
//	@Param			bbox			query		string	false	"north,south,east,west"
//	@Success		200				{array}		core.HeatPoint
//	@Failure		400				{object}	response.ErrorResponse
//	@Router			/dashboard/heatmap [get]
func (h *Dashboard) Heatmap(w http.ResponseWriter, r *http.Request) {
	f, err := request.ParseFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	bbox, err := request.ParseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := h.svc.Heatmap(r.Context(), f, bbox)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, points)
}

// TimeSeries godoc
//
//	@Summary		Report time series
//	@Description	Counts reports per event type in hour or day buckets. Empty buckets are omitted.
//	@Tags			Dashboard
//	@Security		BearerAuth
//	@Param			bucket			query		string	false	"hour or day"
//	@Param			period_hours	query		number	false	"Look-back in hours, default 168"
//	@Success		200				{array}		core.TimeSeriesPoint
//	@Failure		400				{object}	response.ErrorResponse
//	@Router			/dashboard/timeseries [get]
func (h *Dashboard) TimeSeries(w http.ResponseWriter, r *http.Request) {
	bucket, period, err := request.ParseTimeSeries(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := h.svc.TimeSeries(r.Context(), bucket, period)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, points)
}
