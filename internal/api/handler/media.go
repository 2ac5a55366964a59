package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/media"
)

const (
	maxUploadBytes  = 100 << 20
	multipartMemory = 32 << 20
)

type Media struct {
	reports  *core.ReportService
	uploader media.Uploader
	now      func() time.Time
}

// NewMedia returns the evidence upload handler. A nil uploader disables uploads.
func NewMedia(reports *core.ReportService, uploader media.Uploader) *Media {
	return &Media{reports: reports, uploader: uploader, now: time.Now}
}

// Upload godoc
//
//	@Summary		Upload evidence
//	@Description	Uploads one or more images or videos (multipart field "files") and appends their URLs to the report.
//	@Tags			Reports
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Param			id		path		string	true	"Report ID"
//	@Param			files	formData	file	true	"Evidence files"
//	@Success		200		{object}	model.Report
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		415		{object}	response.ErrorResponse
//	@Failure		503		{object}	response.ErrorResponse
//	@Router			/reports/{id}/media [post]
func (h *Media) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		response.WriteError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.reports.Get(r.Context(), id); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.WriteError(w, http.StatusBadRequest, "no files in field \"files\"")
		return
	}
	files := make([]media.File, len(headers))
	for i, fh := range headers {
		files[i] = media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	urls, mediaType, err := media.UploadAll(r.Context(), h.uploader, id, files, h.now())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	report, err := h.reports.AttachMedia(r.Context(), id, urls, mediaType)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}
