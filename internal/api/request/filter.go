package request

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// MaxTimeWindow bounds explicit windows, in hours (ten years).
const MaxTimeWindow = 87600

// timePresets are the dashboard's quick ranges, in hours. "1m" is a month.
var timePresets = map[string]float64{
	"24h": 24,
	"1w":  7 * 24,
	"1m":  30 * 24,
	"6m":  182 * 24,
}

// ListParams holds pagination and the free-text and status filters.
type ListParams struct {
	Limit  int
	Cursor string
	Search string
	Status string
}

// ParseListParams extracts list parameters from the query string.
func ParseListParams(r *http.Request) ListParams {
	return ListParams{
		Limit:  Limit(r, DefaultLimit),
		Cursor: r.URL.Query().Get("cursor"),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Status: r.URL.Query().Get("status"),
	}
}

// ParseFilter reads event_type, min_trust, time_window and verified_only.
// Missing parameters leave the matching predicate disabled.
func ParseFilter(r *http.Request) (triage.Filter, error) {
	q := r.URL.Query()
	f := triage.DefaultFilter()

	if e := stringOr(q.Get("event_type"), triage.AllEventTypes); e != triage.AllEventTypes {
		if !model.EventType(e).Known() {
			return f, fmt.Errorf("unknown event_type %q", e)
		}
		f.EventType = e
	}

	if v := q.Get("min_trust"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(t) || t < 0 || t > 1 {
			return f, fmt.Errorf("min_trust must be a number between 0 and 1")
		}
		f.MinTrust = t
	}

	w, err := ParseTimeWindow(q.Get("time_window"))
	if err != nil {
		return f, err
	}
	f.TimeWindow = w

	if v := q.Get("verified_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("verified_only must be a boolean")
		}
		f.VerifiedOnly = b
	}
	return f, nil
}

// ParseTimeWindow accepts hours ("12", "0.5"), a preset (24h, 1w, 1m, 6m), a
// Go duration ("90m" is not accepted since "1m" is a month; use "1h30m"), or
// "all" and the empty string for no window.
func ParseTimeWindow(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return triage.NoTimeWindow, nil
	}
	if h, ok := timePresets[s]; ok {
		return h, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil {
			return 0, fmt.Errorf("invalid time_window %q", s)
		}
		h = d.Hours()
	}
	if math.IsNaN(h) || h < 0 || h > MaxTimeWindow {
		return 0, fmt.Errorf("time_window must be between 0 and %d hours", MaxTimeWindow)
	}
	return h, nil
}

// ParseTimeSeries reads the bucket (hour or day, default hour) and the
// period_hours look-back (default one week).
func ParseTimeSeries(r *http.Request) (core.TimeBucket, time.Duration, error) {
	q := r.URL.Query()
	bucket, ok := core.ParseTimeBucket(stringOr(q.Get("bucket"), string(core.BucketHour)))
	if !ok {
		return "", 0, fmt.Errorf("bucket must be hour or day")
	}
	period := core.DefaultTimeSeriesPeriod
	if v := q.Get("period_hours"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(h) || h <= 0 || h > MaxTimeWindow {
			return "", 0, fmt.Errorf("period_hours must be between 0 and %d", MaxTimeWindow)
		}
		period = time.Duration(h * float64(time.Hour))
	}
	return bucket, period, nil
}

// ParseBBox reads a "north,south,east,west" viewport.
func ParseBBox(s string) (*core.BBox, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be north,south,east,west")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("bbox must be north,south,east,west")
		}
		v[i] = f
	}
	b := &core.BBox{North: v[0], South: v[1], East: v[2], West: v[3]}
	if b.North < b.South || b.East < b.West {
		return nil, fmt.Errorf("bbox north must be >= south and east >= west")
	}
	return b, nil
}

func stringOr(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
