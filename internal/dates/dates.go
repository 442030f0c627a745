// Package dates holds the calendar-day helpers shared by the scheduler and
// the stats engine. All values are interpreted in the location of the
// time.Time they are computed from; ISO strings are parsed in time.Local.
package dates

import (
	"fmt"
	"time"
)

// Layout is the zero-padded ISO calendar date format used for all stored dates.
// Zero padding keeps lexicographic order equal to chronological order.
const Layout = "2006-01-02"

// Format returns the ISO calendar date of t
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse parses an ISO calendar date at local midnight
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Midnight strips the time of day from t, keeping its location
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays advances t by n calendar days. Unlike adding 24h multiples it is
// not affected by daylight-saving transitions.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// Yesterday returns the ISO date of the day before t
func Yesterday(t time.Time) string {
	return Format(AddDays(Midnight(t), -1))
}

// PreviousDay returns the ISO date one calendar day before the ISO date s
func PreviousDay(s string) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(AddDays(t, -1)), nil
}

// ShortWeekday returns the three-letter English weekday name of t ("Mon")
func ShortWeekday(t time.Time) string {
	return t.Weekday().String()[:3]
}
