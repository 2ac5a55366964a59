package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntryID(t *testing.T) {
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, NewEntryID())
}

func TestRecordIDs(t *testing.T) {
	tests := []struct {
		name string
		gen  func() string
		want string
	}{
		{"report", NewReportID, `^rpt_[a-z0-9]{10}$`},
		{"incident", NewIncidentID, `^inc_[a-z0-9]{10}$`},
		{"simulated", NewSimulatedID, `^sim_[a-z0-9]{10}$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, tt.want, tt.gen())
		})
	}
}

func TestSuffix_Unique(t *testing.T) {
	seen := make(map[string]bool, 200)
	for range 200 {
		s := Suffix()
		assert.False(t, seen[s], "duplicate suffix %s", s)
		seen[s] = true
	}
}

func TestSimulated(t *testing.T) {
	assert.True(t, Simulated(NewSimulatedID()))
	assert.False(t, Simulated(NewReportID()))
}
