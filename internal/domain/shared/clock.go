package shared

import "time"

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayRange returns the half-open range [start of from, start of the day after to)
func DayRange(from, to time.Time) (time.Time, time.Time) {
	return StartOfDay(from), StartOfDay(to).AddDate(0, 0, 1)
}
