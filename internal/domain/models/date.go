package models

import "time"

// DateLayout is the wire format used for trade dates (query params, JSON, CLI flags).
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t (in t's own location) as midnight UTC.
//
// Trade dates are stored as SQL DATE values; normalising every date to UTC midnight keeps
// comparisons and map keys stable regardless of the zone "today" was computed in.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalised trade date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(d), nil
}
