package triage

import (
	"math"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

// AllEventTypes disables the event type predicate.
const AllEventTypes = "all"

// NoTimeWindow disables the age predicate.
var NoTimeWindow = math.Inf(1)

// Filter is the conjunction of four predicates shared by the map, the lists
// and every realtime subscription. TimeWindow is measured in hours.
type Filter struct {
	EventType    string  `json:"event_type"`
	MinTrust     float64 `json:"min_trust"`
	TimeWindow   float64 `json:"time_window"`
	VerifiedOnly bool    `json:"verified_only"`
}

// DefaultFilter matches everything.
func DefaultFilter() Filter {
	return Filter{EventType: AllEventTypes, TimeWindow: NoTimeWindow}
}

// Bounded reports whether the filter restricts record age.
func (f Filter) Bounded() bool {
	return !math.IsInf(f.TimeWindow, 1)
}

func (f Filter) matchesType(e model.EventType) bool {
	return f.EventType == "" || f.EventType == AllEventTypes || f.EventType == string(e)
}

// withinWindow accepts future observations. A zero timestamp only passes an
// unbounded window.
func (f Filter) withinWindow(observed, now time.Time) bool {
	if !f.Bounded() {
		return true
	}
	if observed.IsZero() {
		return false
	}
	return now.Sub(observed).Hours() <= f.TimeWindow
}

// MatchesReport evaluates the filter against a report.
func (f Filter) MatchesReport(r *model.Report, now time.Time) bool {
	return f.matchesType(r.EventType) &&
		r.Trust >= f.MinTrust &&
		f.withinWindow(r.Timestamp, now) &&
		(!f.VerifiedOnly || r.Status == model.ReportVerified)
}

// MatchesIncident evaluates the filter against an incident, using confidence
// as trust. Incidents always satisfy the verified predicate.
func (f Filter) MatchesIncident(i *model.Incident, now time.Time) bool {
	return f.matchesType(i.EventType) &&
		i.Confidence >= f.MinTrust &&
		f.withinWindow(i.Timestamp, now)
}

// Select returns the items matching pred in their original order.
func Select[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// SelectReports applies f to reports at now.
func SelectReports(reports []model.Report, f Filter, now time.Time) []model.Report {
	return Select(reports, func(r model.Report) bool { return f.MatchesReport(&r, now) })
}

// SelectIncidents applies f to incidents at now.
func SelectIncidents(incidents []model.Incident, f Filter, now time.Time) []model.Incident {
	return Select(incidents, func(i model.Incident) bool { return f.MatchesIncident(&i, now) })
}
