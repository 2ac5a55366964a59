package core

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/notify"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/triage"
)

// Options carries the collaborators shared by every service.
type Options struct {
	Publisher realtime.Publisher
	Tau       time.Duration
	Catalog   *sop.Catalog
	// Alerts delivers published incidents; nil records the publish action only.
	Alerts    *notify.Channels
	Now       func() time.Time
	Logger    zerolog.Logger
}

type Services struct {
	Report    *ReportService
	Incident  *IncidentService
	Dashboard *DashboardService
	Search    *SearchService
}

func NewServices(store Store, opts Options) *Services {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tau <= 0 {
		opts.Tau = triage.DefaultTau
	}
	incidents := NewIncidentService(store, opts)
	return &Services{
		Report:    NewReportService(store, store, opts),
		Incident:  incidents,
		Dashboard: NewDashboardService(store, store, opts),
		Search:    NewSearchService(store, store),
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Event) {}

// page trims a Limit+1 result to limit and reports whether more exist.
func page[T any](items []T, limit int) ([]T, bool) {
	if limit > 0 && len(items) > limit {
		return items[:limit], true
	}
	return items, false
}
