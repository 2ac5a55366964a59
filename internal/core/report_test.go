package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/adapter"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/store/memstore"
	"github.com/edvin/civicwatch/internal/triage"
)

func TestReportService_CreateForcesNewStatus(t *testing.T) {
	f := newFixture(t)
	r := &model.Report{EventType: model.EventDrug, Trust: 0.6, Status: model.ReportVerified}
	require.NoError(t, f.svc.Report.Create(context.Background(), r))

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, model.ReportNew, r.Status)
	assert.Equal(t, f.clock.Now(), r.Timestamp)
	assert.Equal(t, model.PriorityMedium, r.Priority)
	assert.Equal(t, []realtime.EventType{realtime.EventNewReport}, f.pub.types())
}

func TestReportService_GetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Report.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReportService_VerifySpawnsIncidentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventStreetCrimes, 0.8)

	f.clock.Advance(time.Minute)
	verified, inc, err := f.svc.Report.Verify(ctx, r.ID, "analyst@city", "matches CCTV")
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, model.ReportVerified, verified.Status)
	assert.Equal(t, "analyst@city", *verified.VerifiedBy)
	assert.Equal(t, "matches CCTV", verified.AnalystNotes)
	assert.Equal(t, model.IncidentOpen, inc.Status)
	assert.Equal(t, r.ID, inc.ReportID)
	assert.Equal(t, "matches CCTV", inc.AnalystNotes)

	updatedAt := verified.UpdatedAt
	f.clock.Advance(time.Minute)
	again, inc2, err := f.svc.Report.Verify(ctx, r.ID, "other@city", "")
	require.NoError(t, err)
	require.NotNil(t, inc2)
	assert.Equal(t, inc.ID, inc2.ID)
	assert.Equal(t, updatedAt, again.UpdatedAt, "no-op must not refresh updated_at")

	incidents, _, err := f.svc.Incident.List(ctx, core.IncidentQuery{Filter: triage.DefaultFilter()})
	require.NoError(t, err)
	assert.Len(t, incidents, 1)

	assert.Equal(t, []realtime.EventType{
		realtime.EventNewReport, realtime.EventReportUpdated, realtime.EventIncidentCreated,
	}, f.pub.types())
}

func TestReportService_ReviewThenReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventDrug, 0.4)

	reviewed, err := f.svc.Report.Review(ctx, r.ID, "analyst")
	require.NoError(t, err)
	assert.Equal(t, model.ReportInReview, reviewed.Status)
	assert.Nil(t, reviewed.VerifiedBy)

	rejected, err := f.svc.Report.Reject(ctx, r.ID, "analyst", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, model.ReportRejected, rejected.Status)

	_, _, err = f.svc.Report.Verify(ctx, r.ID, "analyst", "")
	assert.ErrorIs(t, err, triage.ErrInvalidTransition)
}

func TestReportService_RejectVerifiedFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventDrug, 0.4)
	_, _, err := f.svc.Report.Verify(ctx, r.ID, "a", "")
	require.NoError(t, err)

	_, err = f.svc.Report.Reject(ctx, r.ID, "a", "")
	require.ErrorIs(t, err, triage.ErrInvalidTransition)
	assert.EqualError(t, err, "cannot reject a verified report")

	got, _ := f.svc.Report.Get(ctx, r.ID)
	assert.Equal(t, model.ReportVerified, got.Status)
}

func TestReportService_EscalateVerifiesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventCybercrimes, 0.9)

	escalated, esc, err := f.svc.Report.Escalate(ctx, r.ID, "analyst", "phishing ring")
	require.NoError(t, err)
	assert.Equal(t, model.ReportVerified, escalated.Status)
	assert.Equal(t, "Cyber Crime Cell", esc.Department)
	assert.Equal(t, "Cyber Crime Cell", *escalated.EscalatedTo)
	assert.Equal(t, "phishing ring", *escalated.EscalationNotes)

	inc, err := f.store.GetIncidentByReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cyber Crime Cell", *inc.EscalatedTo)
	require.Len(t, inc.Contacts, 1)
	assert.Equal(t, "Cyber Crime Cell", inc.Contacts[0].Department)

	history, err := f.svc.Report.Escalations(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReportService_EscalateRejectedFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventDrug, 0.4)
	_, err := f.svc.Report.Reject(ctx, r.ID, "a", "")
	require.NoError(t, err)

	_, _, err = f.svc.Report.Escalate(ctx, r.ID, "a", "")
	assert.ErrorIs(t, err, triage.ErrInvalidTransition)

	history, _ := f.store.ListEscalations(ctx, r.ID)
	assert.Empty(t, history)
}

func TestReportService_EscalateTwiceKeepsLatestDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventRoadRage, 0.6)

	_, _, err := f.svc.Report.Escalate(ctx, r.ID, "a", "first")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, _, err = f.svc.Report.Escalate(ctx, r.ID, "a", "second")
	require.NoError(t, err)

	history, err := f.svc.Report.Escalations(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	d, ok := triage.CurrentDepartment(history)
	assert.True(t, ok)
	assert.Equal(t, "Traffic Police", d)
}

func TestReportService_ListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.newReport(t, model.EventDrug, 0.8)
		f.clock.Advance(time.Second)
	}
	f.newReport(t, model.EventStreetCrimes, 0.2)

	q := core.ReportQuery{Filter: triage.Filter{EventType: string(model.EventDrug), TimeWindow: triage.NoTimeWindow}, Limit: 2}
	items, hasMore, err := f.svc.Report.List(ctx, q)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, hasMore)

	q.Cursor = items[1].ID
	rest, hasMore, err := f.svc.Report.List(ctx, q)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.False(t, hasMore)

	bbox := &core.BBox{North: 10, South: 0, East: 10, West: 0}
	none, _, err := f.svc.Report.List(ctx, core.ReportQuery{Filter: triage.DefaultFilter(), BBox: bbox})
	require.NoError(t, err)
	assert.Empty(t, none)

	found, _, err := f.svc.Report.List(ctx, core.ReportQuery{Filter: triage.DefaultFilter(), Search: "DADAR"})
	require.NoError(t, err)
	assert.Len(t, found, 4)
}

func TestReportService_AttachMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newReport(t, model.EventDrug, 0.5)

	got, err := f.svc.Report.AttachMedia(ctx, r.ID, []string{"https://cdn.example/2.mp4"}, model.MediaVideo)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.mp4"}, got.Media)

	_, err = f.svc.Report.AttachMedia(ctx, "missing", []string{"x"}, "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReportService_ImportKeepsUnknownCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := f.clock.Now().Add(-2 * time.Hour)

	res, err := f.svc.Report.Import(ctx, []adapter.CrimeReport{
		{ID: "c1", Category: "DRUG", Status: "PENDING", Priority: "HIGH", Timestamp: ts},
		{ID: "c2", Category: "THEFT", Status: "VERIFIED", Priority: "LOW", Timestamp: ts,
			Escalation: &adapter.CrimeEscalation{EscalatedTo: "Crime Branch", Status: "COMPLETED"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Incidents)
	assert.Equal(t, []string{"THEFT"}, res.UnknownCategories)

	c2, err := f.svc.Report.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, model.EventType("theft"), c2.EventType)

	inc, err := f.store.GetIncidentByReport(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, model.IncidentDispatched, inc.Status)
	assert.Equal(t, "Crime Branch", *inc.EscalatedTo)
}

// flakyIncidents fails the next CreateIncident calls.
type flakyIncidents struct {
	*memstore.Store
	failures int
}

func (s *flakyIncidents) CreateIncident(ctx context.Context, i *model.Incident) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("db down")
	}
	return s.Store.CreateIncident(ctx, i)
}

func newFlakyServices(f *fixture, failures int) *core.Services {
	return core.NewServices(&flakyIncidents{Store: f.store, failures: failures}, core.Options{
		Publisher: f.pub,
		Now:       f.clock.Now,
		Logger:    zerolog.Nop(),
	})
}

func TestReportService_VerifyRetryCreatesMissingIncident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newFlakyServices(f, 1)
	r := f.newReport(t, model.EventStreetCrimes, 0.7)

	_, _, err := svc.Report.Verify(ctx, r.ID, "analyst", "")
	require.ErrorContains(t, err, "db down")
	stored, err := f.store.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportVerified, stored.Status)

	_, inc, err := svc.Report.Verify(ctx, r.ID, "analyst", "")
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, r.ID, inc.ReportID)

	got, err := f.store.GetIncidentByReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, inc.ID, got.ID)
}

func TestReportService_EscalateCreatesMissingIncident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newFlakyServices(f, 1)
	r := f.newReport(t, model.EventCybercrimes, 0.9)

	_, _, err := svc.Report.Verify(ctx, r.ID, "analyst", "")
	require.Error(t, err)

	_, _, err = svc.Report.Escalate(ctx, r.ID, "analyst", "phishing ring")
	require.NoError(t, err)

	inc, err := f.store.GetIncidentByReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cyber Crime Cell", *inc.EscalatedTo)
}
