package fin

import "time"

// DateFormat is the canonical storage format for calendar dates.
const DateFormat = "2006-01-02"

// Day truncates a timestamp to a UTC calendar day. All engine dates are
// normalized through this so map keys and comparisons line up.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar day after d.
func NextDay(d time.Time) time.Time {
	return Day(d).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// MinDay returns the earlier of two days, ignoring zero values.
func MinDay(a, b time.Time) time.Time {
	if a.IsZero() {
		return Day(b)
	}
	if b.IsZero() {
		return Day(a)
	}
	if b.Before(a) {
		return Day(b)
	}
	return Day(a)
}
