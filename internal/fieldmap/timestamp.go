package fieldmap

import (
	"math"
	"time"
)

// millisecondThreshold separates epoch seconds from epoch milliseconds.
const millisecondThreshold = 10_000_000_000

// Dates outside years 1 to 9999 cannot be stored as yyyy-mm-dd.
var (
	minUnix = float64(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	maxUnix = float64(time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix())
)

// NormalizeTimestamp converts an epoch value to a calendar date at UTC
// midnight. Values beyond the threshold are taken as milliseconds.
// Fractions are truncated toward zero. Dates outside years 1 to 9999 are
// treated as absent.
func NormalizeTimestamp(raw *float64) *time.Time {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return nil
	}
	v := *raw
	if math.Abs(v) > millisecondThreshold {
		v /= 1000
	}
	v = math.Trunc(v)
	if v < minUnix || v > maxUnix {
		return nil
	}
	t := time.Unix(int64(v), 0).UTC()
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date
}

// FormatDate renders a normalized date as yyyy-mm-dd, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
