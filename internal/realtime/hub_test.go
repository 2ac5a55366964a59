package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
	"github.com/edvin/civicwatch/internal/triage"
)

func report(id string, e model.EventType, trust float64) *model.Report {
	return &model.Report{ID: id, EventType: e, Trust: trust, Status: model.ReportNew, Timestamp: time.Now()}
}

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case e := <-s.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNothing(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case e := <-s.Events():
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHub_DeliversMatchingEvents(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	drugs := h.Subscribe(triage.Filter{EventType: string(model.EventDrug), TimeWindow: triage.NoTimeWindow})
	all := h.Subscribe(triage.DefaultFilter())

	h.Publish(ReportEvent(EventNewReport, report("r1", model.EventStreetCrimes, 0.7), time.Now()))
	h.Publish(ReportEvent(EventNewReport, report("r2", model.EventDrug, 0.7), time.Now()))

	got := receive(t, drugs)
	assert.Equal(t, "r2", got.Data.(*model.Report).ID)
	assertNothing(t, drugs)

	assert.Equal(t, "r1", receive(t, all).Data.(*model.Report).ID)
	assert.Equal(t, "r2", receive(t, all).Data.(*model.Report).ID)
}

func TestHub_MinTrustFilter(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	f := triage.DefaultFilter()
	f.MinTrust = 0.8
	s := h.Subscribe(f)

	h.Publish(ReportEvent(EventNewReport, report("low", model.EventDrug, 0.5), time.Now()))
	h.Publish(IncidentEvent(EventIncidentCreated, &model.Incident{ID: "i1", EventType: model.EventDrug, Confidence: 0.9, Timestamp: time.Now()}, time.Now()))

	got := receive(t, s)
	assert.Equal(t, EventIncidentCreated, got.Type)
	assertNothing(t, s)
}

func TestHub_AlertsReachEveryone(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	s := h.Subscribe(triage.Filter{EventType: string(model.EventCybercrimes), MinTrust: 1, TimeWindow: 1, VerifiedOnly: true})
	h.Publish(AlertEvent("System status: All systems operational", time.Now()))
	got := receive(t, s)
	assert.Equal(t, EventSystemAlert, got.Type)
	assert.Equal(t, "System status: All systems operational", got.Data.(Alert).Message)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	slow := h.Subscribe(triage.DefaultFilter())
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*3; i++ {
			h.Publish(AlertEvent("tick", time.Now()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, slow.Events(), defaultBuffer)
}

func TestHub_EventsAreCopies(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	s := h.Subscribe(triage.DefaultFilter())
	r := report("r1", model.EventDrug, 0.5)
	h.Publish(ReportEvent(EventNewReport, r, time.Now()))
	r.Description = "mutated after publish"

	got := receive(t, s)
	assert.Empty(t, got.Data.(*model.Report).Description)
}

func TestSubscription_Close(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s := h.Subscribe(triage.DefaultFilter())
	require.Equal(t, 1, h.Len())

	s.Close()
	s.Close()
	assert.Equal(t, 0, h.Len())
	_, ok := <-s.Events()
	assert.False(t, ok)

	h.Close()
	late := h.Subscribe(triage.DefaultFilter())
	_, ok = <-late.Events()
	assert.False(t, ok)
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	h := NewHub(zerolog.Nop())
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := h.Subscribe(triage.DefaultFilter())
			s.Close()
		}()
		go func() {
			defer wg.Done()
			h.Publish(AlertEvent("x", time.Now()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Len())
}

type capture struct {
	mu     sync.Mutex
	events []Event
}

func (c *capture) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestSimulator_Fabricate(t *testing.T) {
	s := NewSimulator(&capture{}, time.Second, zerolog.Nop())
	for i := 0; i < 20; i++ {
		r := s.Fabricate()
		assert.True(t, r.EventType.Known())
		assert.Equal(t, model.ReportNew, r.Status)
		assert.GreaterOrEqual(t, r.Trust, 0.6)
		assert.LessOrEqual(t, r.Trust, 1.0)
		assert.True(t, r.Location.Mappable())
		assert.True(t, platform.Simulated(r.ID), r.ID)
	}
}

func TestSimulator_RunPublishesUntilCancelled(t *testing.T) {
	c := &capture{}
	s := NewSimulator(c, 5*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return c.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, EventNewReport, c.events[0].Type)
}

func TestSimulator_DisabledWithZeroInterval(t *testing.T) {
	s := NewSimulator(&capture{}, 0, zerolog.Nop())
	assert.NoError(t, s.Run(context.Background()))
}
