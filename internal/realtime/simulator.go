package realtime

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
)

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(e Event)
}

type city struct {
	name     string
	lat, lng float64
}

var simulatedCities = []city{
	{"Mumbai", 19.0760, 72.8777},
	{"Chennai", 13.0827, 80.2707},
	{"Kolkata", 22.5726, 88.3639},
	{"Kochi", 9.9312, 76.2673},
	{"Visakhapatnam", 17.6868, 83.2185},
	{"Panaji", 15.4909, 73.8278},
	{"Pondicherry", 11.9416, 79.8083},
}

// Simulator publishes fabricated new_report events at a jittered interval
// between Interval and twice Interval. Reports are not persisted.
type Simulator struct {
	pub      Publisher
	interval time.Duration
	rnd      *rand.Rand
	now      func() time.Time
	logger   zerolog.Logger
}

func NewSimulator(pub Publisher, interval time.Duration, logger zerolog.Logger) *Simulator {
	return &Simulator{
		pub:      pub,
		interval: interval,
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:      time.Now,
		logger:   logger.With().Str("component", "simulator").Logger(),
	}
}

// Run emits events until ctx is cancelled. A non-positive interval disables
// the simulator.
func (s *Simulator) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	s.logger.Info().Dur("interval", s.interval).Msg("report simulator started")
	for {
		wait := s.interval + time.Duration(s.rnd.Int64N(int64(s.interval)))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r := s.Fabricate()
			s.pub.Publish(ReportEvent(EventNewReport, &r, s.now()))
			s.logger.Debug().Str("report_id", r.ID).Str("event_type", string(r.EventType)).Msg("simulated report")
		}
	}
}

// Fabricate builds a plausible new report near a coastal city.
func (s *Simulator) Fabricate() model.Report {
	e := model.EventTypes[s.rnd.IntN(len(model.EventTypes))]
	c := simulatedCities[s.rnd.IntN(len(simulatedCities))]
	now := s.now()
	label := strings.ReplaceAll(string(e), "_", " ")
	return model.Report{
		ID:          platform.NewSimulatedID(),
		EventType:   e,
		Description: fmt.Sprintf("New %s report from %s. Citizen observation indicates significant %s activity.", label, c.name, label),
		Location: model.Location{
			Lat:     c.lat + (s.rnd.Float64()-0.5)*0.01,
			Lng:     c.lng + (s.rnd.Float64()-0.5)*0.01,
			Address: c.name + ", India",
		},
		Timestamp: now,
		Trust:     0.6 + s.rnd.Float64()*0.4,
		Status:    model.ReportNew,
		Media:     []string{},
		MediaType: model.MediaPhoto,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
