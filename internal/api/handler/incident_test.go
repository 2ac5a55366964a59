package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/adapter"
	mw "github.com/edvin/civicwatch/internal/api/middleware"
	"github.com/edvin/civicwatch/internal/model"
)

func applyAction(t *testing.T, h *Incident, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/incidents/"+id+"/actions", body)
	h.Apply(rec, withRole(withChiURLParam(r, "id", id), "officer-7", mw.RoleAuthority))
	return rec
}

func TestIncidentApply_Lifecycle(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t, model.EventStreetCrimes)
	h := NewIncident(f.svc.Incident)

	rec := applyAction(t, h, inc.ID, map[string]any{"action": "acknowledge"})
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.IncidentAcknowledged, got.Status)

	rec = applyAction(t, h, inc.ID, map[string]any{
		"action":  "dispatch",
		"payload": map[string]any{"team_ids": []string{"pcr-12"}, "message": "respond"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = applyAction(t, h, inc.ID, map[string]any{"action": "close", "payload": map[string]string{"reason": "resolved"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = applyAction(t, h, inc.ID, map[string]any{"action": "acknowledge"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "incident is closed", decodeErrorResponse(rec)["error"])

	rec = httptest.NewRecorder()
	h.Actions(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "id", inc.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []model.ActionEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionAcknowledge, entries[0].Action)
	assert.Equal(t, "officer-7", entries[0].Actor)
	assert.Equal(t, model.IncidentClosed, entries[2].ToStatus)
}

func TestIncidentApply_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t, model.EventDrug)
	h := NewIncident(f.svc.Incident)

	rec := applyAction(t, h, inc.ID, map[string]any{"action": "dispatch", "payload": map[string]any{"message": "go"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncidentApply_UnknownAction(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t, model.EventDrug)
	h := NewIncident(f.svc.Incident)

	rec := applyAction(t, h, inc.ID, map[string]any{"action": "resolve"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

func TestIncidentApply_NotFound(t *testing.T) {
	h := NewIncident(newFixture(t).svc.Incident)

	rec := applyAction(t, h, "inc_missing", map[string]any{"action": "acknowledge"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIncidentList_MapShape(t *testing.T) {
	f := newFixture(t)
	f.incident(t, model.EventRoadRage)
	f.incident(t, model.EventDrug)
	h := NewIncident(f.svc.Incident)
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/incidents?shape=map&event_type=drug", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	items, _, hasMore := decodePage[adapter.MapIncident](t, rec)
	require.Len(t, items, 1)
	assert.False(t, hasMore)
	assert.Equal(t, "drug", items[0].EventType)
}

func TestIncidentList_BadSeverity(t *testing.T) {
	h := NewIncident(newFixture(t).svc.Incident)
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/incidents?severity=apocalyptic", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncidentGetAndProcedure(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t, model.EventSexualViolence)
	h := NewIncident(f.svc.Incident)

	rec := httptest.NewRecorder()
	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "id", inc.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Procedure(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "id", inc.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var got ProcedureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Procedure)
	assert.NotEmpty(t, got.Procedure.Steps)
}
