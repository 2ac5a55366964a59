package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/store/memstore"
)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store *memstore.Store
	svc   *core.Services
	pub   *recorder
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := sop.Load("")
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		store: memstore.New(),
		pub:   &recorder{},
		clock: &clock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = core.NewServices(f.store, core.Options{
		Publisher: f.pub,
		Catalog:   catalog,
		Now:       f.clock.Now,
		Logger:    zerolog.Nop(),
	})
	return f
}

func (f *fixture) newReport(t *testing.T, e model.EventType, trust float64) *model.Report {
	t.Helper()
	r := &model.Report{
		EventType:   e,
		Description: "citizen observation",
		Location:    model.Location{Lat: 19.07, Lng: 72.87, Address: "Dadar, Mumbai"},
		Timestamp:   f.clock.Now().Add(-time.Hour),
		Trust:       trust,
		Media:       []string{"https://cdn.example/1.jpg"},
	}
	if err := f.svc.Report.Create(t.Context(), r); err != nil {
		t.Fatal(err)
	}
	return r
}
