package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/notify"
	"github.com/edvin/civicwatch/internal/store/memstore"
	"github.com/edvin/civicwatch/internal/triage"
)

func verifiedIncident(t *testing.T, f *fixture, e model.EventType) *model.Incident {
	t.Helper()
	r := f.newReport(t, e, 0.8)
	_, inc, err := f.svc.Report.Verify(context.Background(), r.ID, "analyst", "")
	require.NoError(t, err)
	require.NotNil(t, inc)
	return inc
}

func TestIncidentService_ActionSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := verifiedIncident(t, f, model.EventStreetCrimes)

	steps := []struct {
		action  model.IncidentAction
		payload string
		want    model.IncidentStatus
	}{
		{model.ActionAcknowledge, ``, model.IncidentAcknowledged},
		{model.ActionDispatch, `{"team_ids":["patrol-7"],"message":"respond"}`, model.IncidentDispatched},
		{model.ActionEscalate, `{"escalate_to":"Crime Branch","reason":"organised gang"}`, model.IncidentDispatched},
		{model.ActionPublish, `{"channel":"sms","template_id":"t1","languages":["en","ta"]}`, model.IncidentPublished},
		{model.ActionClose, `{"reason":"resolved","notes":"suspects detained"}`, model.IncidentClosed},
	}
	for _, s := range steps {
		f.clock.Advance(time.Minute)
		got, err := f.svc.Incident.Apply(ctx, inc.ID, s.action, "officer", json.RawMessage(s.payload))
		require.NoError(t, err, s.action)
		assert.Equal(t, s.want, got.Status, s.action)
	}

	final, err := f.svc.Incident.GetByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crime Branch", *final.EscalatedTo)
	assert.Equal(t, "suspects detained", final.AnalystNotes)

	log, err := f.svc.Incident.Actions(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, log, len(steps))
	assert.Equal(t, model.IncidentOpen, log[0].FromStatus)
	assert.Equal(t, model.IncidentDispatched, log[2].FromStatus)
	assert.Equal(t, model.IncidentDispatched, log[2].ToStatus)
	assert.JSONEq(t, `{}`, string(log[0].Payload))
}

func TestIncidentService_ClosedIsAbsorbing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := verifiedIncident(t, f, model.EventDrug)

	_, err := f.svc.Incident.Apply(ctx, inc.ID, model.ActionClose, "officer", json.RawMessage(`{"reason":"false alarm"}`))
	require.NoError(t, err)

	for _, action := range model.IncidentActions {
		_, err := f.svc.Incident.Apply(ctx, inc.ID, action, "officer", nil)
		assert.ErrorIs(t, err, triage.ErrIncidentClosed, action)
	}
	log, _ := f.svc.Incident.Actions(ctx, inc.ID)
	assert.Len(t, log, 1)
}

func TestIncidentService_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := verifiedIncident(t, f, model.EventDrug)

	_, err := f.svc.Incident.Apply(ctx, inc.ID, model.ActionDispatch, "officer", json.RawMessage(`{"team_ids":[]}`))
	assert.ErrorIs(t, err, core.ErrInvalidPayload)

	_, err = f.svc.Incident.Apply(ctx, inc.ID, model.ActionEscalate, "officer", json.RawMessage(`not json`))
	assert.ErrorIs(t, err, core.ErrInvalidPayload)

	got, _ := f.svc.Incident.GetByID(ctx, inc.ID)
	assert.Equal(t, model.IncidentOpen, got.Status)
}

func TestIncidentService_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Incident.Apply(context.Background(), "missing", model.ActionAcknowledge, "officer", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.svc.Incident.Actions(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIncidentService_Procedure(t *testing.T) {
	f := newFixture(t)
	inc := verifiedIncident(t, f, model.EventCybercrimes)

	p, exact, err := f.svc.Incident.Procedure(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, "cybercrimes", p.EventType)
	assert.NotEmpty(t, p.Steps)
}

func TestIncidentService_ListBySeverity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifiedIncident(t, f, model.EventDrug)

	items, _, err := f.svc.Incident.List(ctx, core.IncidentQuery{Filter: triage.DefaultFilter(), Severity: model.SeverityHigh})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, _, err = f.svc.Incident.List(ctx, core.IncidentQuery{Filter: triage.DefaultFilter(), Severity: model.SeverityLow})
	require.NoError(t, err)
	assert.Empty(t, items)
}

type alertSink struct {
	alerts []notify.Alert
	err    error
}

func (a *alertSink) Notify(_ context.Context, alert notify.Alert) error {
	a.alerts = append(a.alerts, alert)
	return a.err
}

func TestIncidentService_PublishDeliversAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sink := &alertSink{}
	channels := notify.NewChannels(zerolog.Nop())
	channels.Register("telegram", sink)
	svc := core.NewIncidentService(f.store, core.Options{Alerts: channels, Now: f.clock.Now, Logger: zerolog.Nop()})
	inc := verifiedIncident(t, f, model.EventStreetCrimes)

	_, err := svc.Apply(ctx, inc.ID, model.ActionPublish, "officer", json.RawMessage(`{"channel":"telegram","template_id":"t1","languages":["en"]}`))
	require.NoError(t, err)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, inc.ID, sink.alerts[0].IncidentID)
	assert.Equal(t, "Dadar, Mumbai", sink.alerts[0].Area)

	_, err = svc.Apply(ctx, inc.ID, model.ActionPublish, "officer", json.RawMessage(`{"channel":"sms"}`))
	require.NoError(t, err)
	assert.Len(t, sink.alerts, 1)
}

func TestIncidentService_PublishDeliveryFailureKeepsAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	channels := notify.NewChannels(zerolog.Nop())
	channels.Register("telegram", &alertSink{err: errors.New("bot blocked")})
	svc := core.NewIncidentService(f.store, core.Options{Alerts: channels, Now: f.clock.Now, Logger: zerolog.Nop()})
	inc := verifiedIncident(t, f, model.EventDrug)

	got, err := svc.Apply(ctx, inc.ID, model.ActionPublish, "officer", json.RawMessage(`{"channel":"telegram"}`))
	require.NoError(t, err)
	assert.Equal(t, model.IncidentPublished, got.Status)

	entries, err := svc.Actions(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionPublish, entries[0].Action)
}

// failingActions rejects every action log write.
type failingActions struct {
	*memstore.Store
}

func (failingActions) AppendAction(context.Context, *model.ActionEntry) error {
	return errors.New("audit table locked")
}

func TestIncidentService_FailedActionEntryRevertsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := verifiedIncident(t, f, model.EventMobViolence)
	svc := core.NewIncidentService(failingActions{Store: f.store}, core.Options{Now: f.clock.Now, Logger: zerolog.Nop()})

	_, err := svc.Apply(ctx, inc.ID, model.ActionEscalate, "officer", json.RawMessage(`{"escalate_to":"Riot Control"}`))
	require.ErrorContains(t, err, "audit table locked")
	_, err = svc.Apply(ctx, inc.ID, model.ActionAcknowledge, "officer", nil)
	require.ErrorContains(t, err, "audit table locked")

	got, err := f.store.GetIncident(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentOpen, got.Status)
	assert.Nil(t, got.EscalatedTo)
	assert.Empty(t, got.Contacts)

	entries, err := f.store.ListActions(ctx, inc.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
