package request

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/adapter"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

func decodeBody(t *testing.T, body string, v any) error {
	t.Helper()
	r := httptest.NewRequest("POST", "/reports", bytes.NewBufferString(body))
	return Decode(r, v)
}

func TestCreateReport_Valid(t *testing.T) {
	var req CreateReport
	err := decodeBody(t, `{
		"event_type": "street_crimes",
		"description": " Phone snatched near the metro ",
		"lat": 28.61, "lng": 77.21,
		"address": "Rajiv Chowk",
		"timestamp": "2025-03-14 12:00:00",
		"trust": 0.7,
		"media": ["https://cdn.example.com/a.jpg"]
	}`, &req)
	require.NoError(t, err)

	r, err := req.Report()
	require.NoError(t, err)
	assert.Equal(t, model.EventStreetCrimes, r.EventType)
	assert.Equal(t, "Phone snatched near the metro", r.Description)
	assert.Equal(t, 28.61, r.Location.Lat)
	assert.Equal(t, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, model.MediaPhoto, r.MediaType)
	assert.Equal(t, 0.7, r.Trust)
}

func TestCreateReport_TrustDefault(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"missing", `{"event_type":"drug","description":"x","lat":1,"lng":1}`, adapter.DefaultTrust},
		{"explicit zero", `{"event_type":"drug","description":"x","lat":1,"lng":1,"trust":0}`, 0},
		{"explicit", `{"event_type":"drug","description":"x","lat":1,"lng":1,"trust":0.9}`, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateReport
			require.NoError(t, decodeBody(t, tt.body, &req))
			r, err := req.Report()
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Trust)
		})
	}
}

func TestCreateReport_ZeroCoordinatesAccepted(t *testing.T) {
	var req CreateReport
	require.NoError(t, decodeBody(t, `{"event_type":"drug","description":"x","lat":0,"lng":0}`, &req))
	r, err := req.Report()
	require.NoError(t, err)
	assert.True(t, r.Timestamp.IsZero())
}

func TestCreateReport_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"missing coordinates": `{"event_type":"drug","description":"x"}`,
		"unknown event type":  `{"event_type":"tsunami","description":"x","lat":1,"lng":1}`,
		"latitude range":      `{"event_type":"drug","description":"x","lat":91,"lng":1}`,
		"trust range":         `{"event_type":"drug","description":"x","lat":1,"lng":1,"trust":2}`,
		"media type":          `{"event_type":"drug","description":"x","lat":1,"lng":1,"media_type":"AUDIO"}`,
		"bad json":            `{"event_type":`,
	} {
		t.Run(name, func(t *testing.T) {
			var req CreateReport
			assert.Error(t, decodeBody(t, body, &req))
		})
	}
}

func TestCreateReport_BadTimestamp(t *testing.T) {
	lat, lng := 1.0, 2.0
	req := CreateReport{EventType: "drug", Description: "x", Lat: &lat, Lng: &lng, Timestamp: "yesterday"}
	_, err := req.Report()
	assert.True(t, errors.Is(err, triage.ErrInvalidTimestamp))
}

func TestImportReports_RequiresRows(t *testing.T) {
	var req ImportReports
	assert.Error(t, decodeBody(t, `{"reports":[]}`, &req))
}

func TestApplyIncidentAction(t *testing.T) {
	var req ApplyIncidentAction
	require.NoError(t, decodeBody(t, `{"action":"dispatch","payload":{"team_ids":["t1"]}}`, &req))
	assert.JSONEq(t, `{"team_ids":["t1"]}`, string(req.Payload))

	assert.Error(t, decodeBody(t, `{"action":"resolve"}`, &ApplyIncidentAction{}))
}

func TestQueryEnums(t *testing.T) {
	s, ok := ReportStatus("pending")
	assert.True(t, ok)
	assert.Equal(t, model.ReportNew, s)
	_, ok = ReportStatus("archived")
	assert.False(t, ok)

	p, ok := ReportPriority("high")
	assert.True(t, ok)
	assert.Equal(t, model.PriorityHigh, p)
	_, ok = ReportPriority("urgent")
	assert.False(t, ok)

	_, ok = IncidentStatus("closed")
	assert.True(t, ok)
	_, ok = IncidentSeverity("extreme")
	assert.False(t, ok)
	sev, ok := IncidentSeverity("")
	assert.True(t, ok)
	assert.Empty(t, sev)
}

func TestDecodeOptional_EmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/reports/x/verify", nil)
	var req TriageReport
	assert.NoError(t, DecodeOptional(r, &req))
}

func TestValidationMessages(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"event_type":"drug","description":"x","lng":1}`, "validation error: lat is required"},
		{`{"event_type":"tsunami","description":"x","lat":1,"lng":1}`, `validation error: event_type "tsunami" is not a known event type`},
		{`{"event_type":"drug","description":"x","lat":1,"lng":1,"trust":2}`, "validation error: trust must be at most 1"},
		{`{"event_type":"drug","description":"x","lat":1,"lng":1,"media_type":"AUDIO"}`, "validation error: media_type must be one of: PHOTO VIDEO"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var req CreateReport
			assert.EqualError(t, decodeBody(t, tt.body, &req), tt.want)
		})
	}
}
