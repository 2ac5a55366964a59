package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	mw "github.com/edvin/civicwatch/internal/api/middleware"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/store/memstore"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withRole injects an authenticated identity into the request context.
func withRole(r *http.Request, subject string, role mw.Role) *http.Request {
	return r.WithContext(mw.WithIdentity(r.Context(), &mw.Identity{Subject: subject, Role: role}))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// decodePage parses a paginated response into items of type T.
func decodePage[T any](t *testing.T, rec *httptest.ResponseRecorder) ([]T, string, bool) {
	t.Helper()
	var body struct {
		Items      []T    `json:"items"`
		NextCursor string `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Items, body.NextCursor, body.HasMore
}

type fixture struct {
	store *memstore.Store
	hub   *realtime.Hub
	svc   *core.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := sop.Load("")
	require.NoError(t, err)
	f := &fixture{store: memstore.New(), hub: realtime.NewHub(zerolog.Nop())}
	f.svc = core.NewServices(f.store, core.Options{
		Publisher: f.hub,
		Catalog:   catalog,
		Now:       func() time.Time { return testNow },
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(f.hub.Close)
	return f
}

func (f *fixture) report(t *testing.T, e model.EventType, trust float64) *model.Report {
	t.Helper()
	r := &model.Report{
		EventType:   e,
		Description: "Chain snatching near the bus stop, call 98765 43210",
		Location:    model.Location{Lat: 28.61, Lng: 77.21, Address: "Connaught Place, Delhi"},
		Timestamp:   testNow.Add(-2 * time.Hour),
		Trust:       trust,
		Media:       []string{},
	}
	require.NoError(t, f.svc.Report.Create(context.Background(), r))
	return r
}

// incident verifies a fresh report and returns its incident.
func (f *fixture) incident(t *testing.T, e model.EventType) *model.Incident {
	t.Helper()
	r := f.report(t, e, 0.8)
	_, inc, err := f.svc.Report.Verify(context.Background(), r.ID, "analyst-1", "")
	require.NoError(t, err)
	require.NotNil(t, inc)
	return inc
}
