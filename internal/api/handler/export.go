package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/export"
	"github.com/edvin/civicwatch/internal/model"
)

type Export struct {
	svc  *core.IncidentService
	opts export.CAPOptions
	now  func() time.Time
}

func NewExport(svc *core.IncidentService, opts export.CAPOptions) *Export {
	return &Export{svc: svc, opts: opts, now: time.Now}
}

// all returns every incident matching the request's filters, ignoring pagination.
func (h *Export) all(w http.ResponseWriter, r *http.Request) ([]model.Incident, bool) {
	q, ok := incidentQuery(w, r)
	if !ok {
		return nil, false
	}
	q.Limit = 0
	q.Cursor = ""
	incidents, _, err := h.svc.List(r.Context(), q)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return nil, false
	}
	return incidents, true
}

func (h *Export) filename(ext string) string {
	return fmt.Sprintf("incidents-%s.%s", h.now().UTC().Format("20060102-150405"), ext)
}

// CSV godoc
//
//	@Summary		Export incidents as CSV
//	@Description	mask_pii=true replaces phone numbers in free text.
//	@Tags			Export
//	@Security		BearerAuth
//	@Produce		text/csv
//	@Param			mask_pii	query	bool	false	"Mask phone numbers"
//	@Success		200
//	@Failure		400	{object}	response.ErrorResponse
//	@Router			/export/incidents.csv [get]
func (h *Export) CSV(w http.ResponseWriter, r *http.Request) {
	mask := false
	if v := r.URL.Query().Get("mask_pii"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "mask_pii must be a boolean")
			return
		}
		mask = b
	}
	incidents, ok := h.all(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.filename("csv")+`"`)
	if err := export.WriteCSV(w, incidents, mask); err != nil {
		zerologFromRequest(r).Error().Err(err).Msg("csv export failed")
	}
}

// GeoJSON godoc
//
//	@Summary		Export incidents as a GeoJSON FeatureCollection
//	@Tags			Export
//	@Security		BearerAuth
//	@Produce		application/geo+json
//	@Success		200	{object}	export.FeatureCollection
//	@Failure		400	{object}	response.ErrorResponse
//	@Router			/export/incidents.geojson [get]
func (h *Export) GeoJSON(w http.ResponseWriter, r *http.Request) {
	incidents, ok := h.all(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := export.WriteGeoJSON(w, incidents); err != nil {
		zerologFromRequest(r).Error().Err(err).Msg("geojson export failed")
	}
}

// CAP godoc
//
//	@Summary		Export an incident as a CAP 1.2 alert
//	@Tags			Export
//	@Security		BearerAuth
//	@Produce		application/cap+xml
//	@Param			id	path	string	true	"Incident ID"
//	@Success		200
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/incidents/{id}/cap [get]
func (h *Export) CAP(w http.ResponseWriter, r *http.Request) {
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
	w.Header().Set("Content-Type", "application/cap+xml")
	if err := export.WriteCAP(w, export.NewCAPAlert(inc, h.opts, h.now())); err != nil {
		zerologFromRequest(r).Error().Err(err).Msg("cap export failed")
	}
}
