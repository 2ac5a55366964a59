package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/metrics"
	"github.com/edvin/civicwatch/internal/triage"
)

const defaultBuffer = 64

// Hub is a non-blocking publish/subscribe fan-out. A subscriber whose buffer
// is full misses the event; publishers never wait.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	now    func() time.Time
	logger zerolog.Logger
}

// Subscription is one connection's filtered view of the event stream.
type Subscription struct {
	ID     uint64
	Filter triage.Filter

	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Events returns the delivery channel. It is closed when the subscription
// or the hub is closed.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBuffer,
		now:    time.Now,
		logger: logger.With().Str("component", "realtime-hub").Logger(),
	}
}

// Subscribe registers a new filtered subscription.
func (h *Hub) Subscribe(f triage.Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription{ID: h.nextID, Filter: f, ch: make(chan Event, h.buffer), hub: h}
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s.ID] = s
	metrics.RealtimeSubscribers.Inc()
	return s
}

// Publish delivers e to every subscription whose filter matches it.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subs {
		if !e.Matches(s.Filter, now) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			metrics.RealtimeDropped.Inc()
			h.logger.Warn().Uint64("subscriber", s.ID).Str("event", string(e.Type)).Msg("subscriber buffer full, dropping event")
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		s.once.Do(func() { close(s.ch) })
		metrics.RealtimeSubscribers.Dec()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.ID]; !ok {
		return
	}
	delete(h.subs, s.ID)
	s.once.Do(func() { close(s.ch) })
	metrics.RealtimeSubscribers.Dec()
}
