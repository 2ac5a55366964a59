package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// AnalystKPIs are the report counters of the analyst dashboard. Pending
// counts new and in_review reports.
type AnalystKPIs struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Rejected int `json:"rejected"`
}

// AuthorityKPIs are the incident counters of the authority dashboard.
type AuthorityKPIs struct {
	OpenIncidents int     `json:"open_incidents"`
	NewToday      int     `json:"new_today"`
	AvgConfidence float64 `json:"avg_confidence"`
	// MedianAcknowledgeMinutes is nil until an incident has been acknowledged.
	MedianAcknowledgeMinutes *float64 `json:"median_acknowledge_minutes"`
}

// HeatPoint is one weighted map point.
type HeatPoint struct {
	ID        string          `json:"id"`
	Lat       float64         `json:"lat"`
	Lng       float64         `json:"lng"`
	Intensity float64         `json:"intensity"`
	EventType model.EventType `json:"event_type"`
}

// DashboardService aggregates reports and incidents for the dashboards.
type DashboardService struct {
	reports   ReportRepository
	incidents IncidentRepository
	tau       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewDashboardService(reports ReportRepository, incidents IncidentRepository, opts Options) *DashboardService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DashboardService{
		reports:   reports,
		incidents: incidents,
		tau:       opts.Tau,
		now:       opts.Now,
		logger:    opts.Logger.With().Str("component", "dashboard-service").Logger(),
	}
}

// Tau returns the configured decay constant.
func (s *DashboardService) Tau() time.Duration {
	if s.tau <= 0 {
		return triage.DefaultTau
	}
	return s.tau
}

// AnalystKPIs counts reports by status.
func (s *DashboardService) AnalystKPIs(ctx context.Context) (*AnalystKPIs, error) {
	counts, err := s.reports.CountReportsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	k := &AnalystKPIs{
		Verified: counts[model.ReportVerified],
		InReview: counts[model.ReportInReview],
		Rejected: counts[model.ReportRejected],
		Pending:  counts[model.ReportNew] + counts[model.ReportInReview],
	}
	for _, n := range counts {
		k.Total += n
	}
	return k, nil
}

// AuthorityKPIs loads incidents and the acknowledge log in parallel. The
// acknowledge time of an incident is measured from its creation to its first
// acknowledge action.
func (s *DashboardService) AuthorityKPIs(ctx context.Context) (*AuthorityKPIs, error) {
	var (
		incidents []model.Incident
		acks      []model.ActionEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incidents, err = s.incidents.ListIncidents(gctx, IncidentQuery{Filter: triage.DefaultFilter(), Now: s.now()})
		if err != nil {
			return fmt.Errorf("list incidents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		acks, err = s.incidents.ListActionsByType(gctx, model.ActionAcknowledge)
		if err != nil {
			return fmt.Errorf("list acknowledge actions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	k := &AuthorityKPIs{}
	created := make(map[string]time.Time, len(incidents))
	var confidence float64
	for _, inc := range incidents {
		created[inc.ID] = inc.CreatedAt
		confidence += inc.Confidence
		if inc.Status != model.IncidentClosed {
			k.OpenIncidents++
		}
		if !inc.CreatedAt.Before(midnight) {
			k.NewToday++
		}
	}
	if len(incidents) > 0 {
		k.AvgConfidence = confidence / float64(len(incidents))
	}

	first := make(map[string]time.Time)
	for _, a := range acks {
		if t, ok := first[a.IncidentID]; !ok || a.CreatedAt.Before(t) {
			first[a.IncidentID] = a.CreatedAt
		}
	}
	var minutes []float64
	for id, ackAt := range first {
		if c, ok := created[id]; ok {
			minutes = append(minutes, ackAt.Sub(c).Minutes())
		}
	}
	if len(minutes) > 0 {
		m := median(minutes)
		k.MedianAcknowledgeMinutes = &m
	}
	return k, nil
}

func median(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// Heatmap scores every report matching f. Records without finite
// coordinates or with an invalid timestamp are skipped. Intensities are
// clamped to [0,1] for display.
func (s *DashboardService) Heatmap(ctx context.Context, f triage.Filter, bbox *BBox) ([]HeatPoint, error) {
	now := s.now()
	q := ReportQuery{Filter: f, Now: now, BBox: bbox}
	reports, err := s.reports.ListReports(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reports for heatmap: %w", err)
	}

	points := make([]HeatPoint, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		if !q.Matches(r) || !r.Location.Mappable() {
			continue
		}
		v, err := triage.ReportIntensity(r, now, s.Tau())
		if errors.Is(err, triage.ErrInvalidTimestamp) {
			s.logger.Debug().Str("report_id", r.ID).Msg("skipping report with invalid timestamp")
			continue
		}
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) {
			continue
		}
		points = append(points, HeatPoint{
			ID:        r.ID,
			Lat:       r.Location.Lat,
			Lng:       r.Location.Lng,
			Intensity: triage.ClampIntensity(v),
			EventType: r.EventType,
		})
	}
	return points, nil
}

// TimeBucket is the width of one time-series step.
type TimeBucket string

// Time-series buckets.
const (
	BucketHour TimeBucket = "hour"
	BucketDay  TimeBucket = "day"
)

// DefaultTimeSeriesPeriod is the look-back of the report time series.
const DefaultTimeSeriesPeriod = 168 * time.Hour

// ParseTimeBucket accepts hour and day.
func ParseTimeBucket(s string) (TimeBucket, bool) {
	switch b := TimeBucket(s); b {
	case BucketHour, BucketDay:
		return b, true
	}
	return "", false
}

func (b TimeBucket) width() time.Duration {
	if b == BucketDay {
		return 24 * time.Hour
	}
	return time.Hour
}

// TimeSeriesPoint counts the reports observed in one bucket. Start is the
// bucket's UTC boundary.
type TimeSeriesPoint struct {
	Start    time.Time               `json:"start"`
	Counts   map[model.EventType]int `json:"counts"`
	Total    int                     `json:"total"`
	AvgTrust float64                 `json:"avg_trust"`
}

// TimeSeries buckets the reports observed within period before now by event
// type, oldest bucket first. Buckets without reports are omitted. A
// non-positive period uses DefaultTimeSeriesPeriod.
func (s *DashboardService) TimeSeries(ctx context.Context, bucket TimeBucket, period time.Duration) ([]TimeSeriesPoint, error) {
	if period <= 0 {
		period = DefaultTimeSeriesPeriod
	}
	f := triage.DefaultFilter()
	f.TimeWindow = period.Hours()
	q := ReportQuery{Filter: f, Now: s.now()}
	reports, err := s.reports.ListReports(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reports for time series: %w", err)
	}

	width := bucket.width()
	byStart := make(map[time.Time]*TimeSeriesPoint)
	trust := make(map[time.Time]float64)
	for i := range reports {
		r := &reports[i]
		if r.Timestamp.IsZero() || !q.Matches(r) {
			continue
		}
		start := r.Timestamp.UTC().Truncate(width)
		p, ok := byStart[start]
		if !ok {
			p = &TimeSeriesPoint{Start: start, Counts: make(map[model.EventType]int, len(model.EventTypes))}
			for _, e := range model.EventTypes {
				p.Counts[e] = 0
			}
			byStart[start] = p
		}
		p.Counts[r.EventType]++
		p.Total++
		trust[start] += r.Trust
	}

	points := make([]TimeSeriesPoint, 0, len(byStart))
	for start, p := range byStart {
		p.AvgTrust = trust[start] / float64(p.Total)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	return points, nil
}
