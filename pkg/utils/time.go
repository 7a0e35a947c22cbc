package utils

import "time"

// Calendar-day boundaries use a single fixed reference timezone for the
// whole deployment: UTC. Per-user timezones are not inferred.

// NowRFC3339 returns the current time in RFC3339 format
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NowUnixSeconds returns the current time as float seconds since epoch,
// the timestamp representation persisted on every entry
func NowUnixSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// DayBounds returns the inclusive [start, end) epoch-second bounds of the
// UTC calendar day containing t
func DayBounds(t time.Time) (start, end float64) {
	utc := t.UTC()
	s := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return float64(s.Unix()), float64(s.Add(24 * time.Hour).Unix())
}

// DayKey formats the UTC calendar date of an epoch-seconds timestamp,
// e.g. "2025-02-07"
func DayKey(ts float64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.DateOnly)
}
