package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

var base = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		r := model.Report{
			ID:        fmt.Sprintf("r%02d", i),
			EventType: model.EventDrug,
			Trust:     0.5,
			Status:    model.ReportNew,
			Timestamp: base,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateReport(context.Background(), &r))
	}
}

func TestStore_ListReportsPaginates(t *testing.T) {
	s := New()
	seed(t, s, 5)
	ctx := context.Background()
	q := core.ReportQuery{Filter: triage.DefaultFilter(), Now: base, Limit: 2}

	first, err := s.ListReports(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "r04", first[0].ID)
	assert.Equal(t, "r03", first[1].ID)

	q.Cursor = first[1].ID
	second, err := s.ListReports(ctx, q)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "r02", second[0].ID)

	q.Cursor = "r00"
	last, err := s.ListReports(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestStore_UpdateReportCompareAndSet(t *testing.T) {
	s := New()
	seed(t, s, 1)
	ctx := context.Background()

	r, err := s.GetReport(ctx, "r00")
	require.NoError(t, err)
	r.Status = model.ReportVerified
	require.NoError(t, s.UpdateReport(ctx, r, model.ReportNew))

	r.Status = model.ReportRejected
	assert.ErrorIs(t, s.UpdateReport(ctx, r, model.ReportNew), core.ErrConflict)

	assert.ErrorIs(t, s.UpdateReport(ctx, &model.Report{ID: "missing"}, model.ReportNew), core.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := model.Report{ID: "r1", Media: []string{"a"}, CreatedAt: base}
	require.NoError(t, s.CreateReport(ctx, &r))
	r.Media[0] = "mutated"

	got, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Media)
	got.Media[0] = "mutated"

	again, _ := s.GetReport(ctx, "r1")
	assert.Equal(t, []string{"a"}, again.Media)
}

func TestStore_AppendMedia(t *testing.T) {
	s := New()
	seed(t, s, 1)
	ctx := context.Background()
	require.NoError(t, s.AppendMedia(ctx, "r00", []string{"u1", "u2"}, model.MediaVideo, base))
	r, _ := s.GetReport(ctx, "r00")
	assert.Equal(t, []string{"u1", "u2"}, r.Media)
	assert.Equal(t, model.MediaVideo, r.MediaType)
	assert.ErrorIs(t, s.AppendMedia(ctx, "nope", nil, "", base), core.ErrNotFound)
}

func TestStore_IncidentPerReportIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateIncident(ctx, &model.Incident{ID: "i1", ReportID: "r1"}))
	assert.Error(t, s.CreateIncident(ctx, &model.Incident{ID: "i2", ReportID: "r1"}))

	inc, err := s.GetIncidentByReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "i1", inc.ID)

	_, err = s.GetIncidentByReport(ctx, "r2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ActionsByType(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateIncident(ctx, &model.Incident{ID: "i1"}))
	require.NoError(t, s.AppendAction(ctx, &model.ActionEntry{ID: "a2", IncidentID: "i1", Action: model.ActionAcknowledge, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.AppendAction(ctx, &model.ActionEntry{ID: "a1", IncidentID: "i1", Action: model.ActionDispatch, CreatedAt: base}))
	assert.ErrorIs(t, s.AppendAction(ctx, &model.ActionEntry{IncidentID: "nope"}), core.ErrNotFound)

	acks, err := s.ListActionsByType(ctx, model.ActionAcknowledge)
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, "a2", acks[0].ID)

	all, _ := s.ListActions(ctx, "i1")
	assert.Len(t, all, 2)
}
