// Package platform generates record identifiers.
package platform

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// Record ID prefixes. Reports and incidents carry short readable IDs since
// analysts read them out over the phone; log-style entries use UUIDs.
const (
	ReportPrefix    = "rpt_"
	IncidentPrefix  = "inc_"
	SimulatedPrefix = "sim_"
)

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 10
)

// NewEntryID identifies append-only entries: escalations, incident actions
// and audit records.
func NewEntryID() string {
	return uuid.New().String()
}

func NewReportID() string   { return ReportPrefix + Suffix() }
func NewIncidentID() string { return IncidentPrefix + Suffix() }

// NewSimulatedID marks reports fabricated by the demo feed.
func NewSimulatedID() string { return SimulatedPrefix + Suffix() }

// Suffix returns ten random lower-case base36 characters.
func Suffix() string {
	b := make([]byte, suffixLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = suffixAlphabet[b[i]%byte(len(suffixAlphabet))]
	}
	return string(b)
}

// Simulated reports whether id came from the demo feed.
func Simulated(id string) bool {
	return strings.HasPrefix(id, SimulatedPrefix)
}
