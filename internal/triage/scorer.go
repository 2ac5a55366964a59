// Package triage holds the pure decision logic of the dashboard: trust decay,
// filtering, the report and incident status machines and department routing.
package triage

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

// DefaultTau is the decay time constant used when none is configured.
const DefaultTau = 6 * time.Hour

// Intensity returns trust * exp(-elapsed/tau). It is exactly trust at zero
// elapsed time, strictly decreasing for positive trust, and exceeds trust for
// observations in the future. The result is not clamped.
func Intensity(trust float64, observed, now time.Time, tau time.Duration) float64 {
	if tau <= 0 {
		tau = DefaultTau
	}
	hours := now.Sub(observed).Hours()
	return trust * math.Exp(-hours/tau.Hours())
}

// ReportIntensity scores a report at now.
func ReportIntensity(r *model.Report, now time.Time, tau time.Duration) (float64, error) {
	if r.Timestamp.IsZero() {
		return 0, fmt.Errorf("score report %s: %w", r.ID, ErrInvalidTimestamp)
	}
	return Intensity(r.Trust, r.Timestamp, now, tau), nil
}

// ClampIntensity bounds an intensity to [0,1] for display.
func ClampIntensity(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the common SQL datetime layouts.
// Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse %q: %w", s, ErrInvalidTimestamp)
}
