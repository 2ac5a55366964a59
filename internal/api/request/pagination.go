package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// Page sizes. List endpoints clamp; search rejects out-of-range values.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Limit reads the limit parameter clamped to MaxLimit. A missing,
// unparseable or non-positive value yields def.
func Limit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, MaxLimit)
}

// StrictLimit is Limit for endpoints that reject bad input. A missing value
// yields 0 so the service picks its own default.
func StrictLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > MaxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	return n, nil
}
