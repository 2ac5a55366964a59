package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/model"
)

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *memUploader) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = b
	return "https://media.test/" + key, nil
}

type part struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mpw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mpw.Close())
	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mpw.FormDataContentType())
	return r
}

func TestMediaUpload(t *testing.T) {
	f := newFixture(t)
	rep := f.report(t, model.EventRoadRage, 0.6)
	up := &memUploader{}
	h := NewMedia(f.svc.Report, up)
	rec := httptest.NewRecorder()
	r := multipartRequest(t, "/reports/"+rep.ID+"/media",
		part{"dashcam.mp4", "video/mp4", "frames"},
		part{"plate.jpg", "image/jpeg", "pixels"},
	)

	h.Upload(rec, withChiURLParam(r, "id", rep.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Media, 2)
	assert.Contains(t, got.Media[0], "dashcam.mp4")
	assert.Contains(t, got.Media[1], "plate.jpg")
	assert.Equal(t, model.MediaVideo, got.MediaType)
	assert.Len(t, up.objects, 2)
}

func TestMediaUpload_UnsupportedType(t *testing.T) {
	f := newFixture(t)
	rep := f.report(t, model.EventDrug, 0.6)
	up := &memUploader{}
	h := NewMedia(f.svc.Report, up)
	rec := httptest.NewRecorder()
	r := multipartRequest(t, "/", part{"notes.pdf", "application/pdf", "%PDF"})

	h.Upload(rec, withChiURLParam(r, "id", rep.ID))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Empty(t, up.objects)
}

func TestMediaUpload_NoFiles(t *testing.T) {
	f := newFixture(t)
	rep := f.report(t, model.EventDrug, 0.6)
	h := NewMedia(f.svc.Report, &memUploader{})
	rec := httptest.NewRecorder()

	h.Upload(rec, withChiURLParam(multipartRequest(t, "/"), "id", rep.ID))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaUpload_UnknownReport(t *testing.T) {
	h := NewMedia(newFixture(t).svc.Report, &memUploader{})
	rec := httptest.NewRecorder()
	r := multipartRequest(t, "/", part{"a.jpg", "image/jpeg", "x"})

	h.Upload(rec, withChiURLParam(r, "id", "rpt_missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaUpload_NotConfigured(t *testing.T) {
	h := NewMedia(newFixture(t).svc.Report, nil)
	rec := httptest.NewRecorder()

	h.Upload(rec, withChiURLParam(newRequest(http.MethodPost, "/", nil), "id", "rpt_1"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
