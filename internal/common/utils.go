package common

import (
	"errors"
	"time"
)

// ErrBadDate is returned for dates that are neither YYYY-MM-DD nor
// RFC3339.
var ErrBadDate = errors.New("invalid date; use YYYY-MM-DD or RFC3339")

// ParseDate parses a calendar date, accepting plain YYYY-MM-DD or a
// full RFC3339 timestamp, and normalizes it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		ts = ts.UTC()
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrBadDate
}
