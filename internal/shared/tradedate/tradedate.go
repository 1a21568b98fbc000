// Package tradedate normalizes calendar dates used as keys across the stores.
package tradedate

import "time"

const layout = "2006-01-02"

// Lagos is the exchange's local time zone (WAT, UTC+1, no DST).
var Lagos = loadLagos()

func loadLagos() *time.Location {
	if loc, err := time.LoadLocation("Africa/Lagos"); err == nil {
		return loc
	}
	return time.FixedZone("WAT", 60*60)
}

// Normalize returns the calendar date of t as midnight UTC.
// Every (code, date) key is written through this so that equality holds across drivers.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current exchange-local date.
func Today(now time.Time) time.Time {
	return Normalize(now.In(Lagos))
}

// Parse parses YYYY-MM-DD into a normalized date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(layout)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
