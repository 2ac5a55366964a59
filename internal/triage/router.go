package triage

import (
	"time"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
)

// FallbackDepartment receives every event type without a dedicated unit.
const FallbackDepartment = "General Department"

var departmentByEventType = map[model.EventType]string{
	model.EventSexualViolence:   "Women's Cell",
	model.EventDomesticViolence: "Women's Cell",
	model.EventStreetCrimes:     "Crime Branch",
	model.EventMobViolence:      "Law & Order Division",
	model.EventRoadRage:         "Traffic Police",
	model.EventCybercrimes:      "Cyber Crime Cell",
	model.EventDrug:             "Anti Narcotics Cell",
}

// Router maps event types to the responsible department.
type Router struct {
	table    map[model.EventType]string
	fallback string
}

func NewRouter() *Router {
	return &Router{table: departmentByEventType, fallback: FallbackDepartment}
}

// DepartmentFor never fails; unmapped event types go to the fallback.
func (r *Router) DepartmentFor(e model.EventType) string {
	if d, ok := r.table[e]; ok {
		return d
	}
	return r.fallback
}

// Departments lists every routable department once, fallback last.
func (r *Router) Departments() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range model.EventTypes {
		d := r.DepartmentFor(e)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return append(out, r.fallback)
}

// Record builds the immutable escalation record for a report.
func (r *Router) Record(reportID string, e model.EventType, by, notes string, at time.Time) model.Escalation {
	return model.Escalation{
		ID:          platform.NewEntryID(),
		ReportID:    reportID,
		Department:  r.DepartmentFor(e),
		EscalatedBy: by,
		Notes:       notes,
		CreatedAt:   at,
	}
}

// CurrentDepartment returns the department of the most recent escalation.
func CurrentDepartment(escalations []model.Escalation) (string, bool) {
	if len(escalations) == 0 {
		return "", false
	}
	latest := escalations[0]
	for _, e := range escalations[1:] {
		if !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	return latest.Department, true
}
