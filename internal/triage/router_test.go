package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/civicwatch/internal/model"
)

func TestRouter_DepartmentFor(t *testing.T) {
	r := NewRouter()
	tests := map[model.EventType]string{
		model.EventSexualViolence:   "Women's Cell",
		model.EventDomesticViolence: "Women's Cell",
		model.EventStreetCrimes:     "Crime Branch",
		model.EventMobViolence:      "Law & Order Division",
		model.EventRoadRage:         "Traffic Police",
		model.EventCybercrimes:      "Cyber Crime Cell",
		model.EventDrug:             "Anti Narcotics Cell",
		"flood":                     FallbackDepartment,
		"":                          FallbackDepartment,
	}
	for e, want := range tests {
		assert.Equal(t, want, r.DepartmentFor(e), string(e))
	}
}

func TestRouter_Departments(t *testing.T) {
	d := NewRouter().Departments()
	assert.Len(t, d, 7)
	assert.Equal(t, FallbackDepartment, d[len(d)-1])
}

func TestRouter_Record(t *testing.T) {
	e := NewRouter().Record("r1", model.EventCybercrimes, "analyst@city", "phishing ring", now)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "r1", e.ReportID)
	assert.Equal(t, "Cyber Crime Cell", e.Department)
	assert.Equal(t, "analyst@city", e.EscalatedBy)
	assert.Equal(t, now, e.CreatedAt)
}

func TestCurrentDepartment(t *testing.T) {
	_, ok := CurrentDepartment(nil)
	assert.False(t, ok)

	history := []model.Escalation{
		{Department: "Crime Branch", CreatedAt: now.Add(-2 * time.Hour)},
		{Department: "Cyber Crime Cell", CreatedAt: now},
		{Department: "Women's Cell", CreatedAt: now.Add(-time.Hour)},
	}
	d, ok := CurrentDepartment(history)
	assert.True(t, ok)
	assert.Equal(t, "Cyber Crime Cell", d)
}
