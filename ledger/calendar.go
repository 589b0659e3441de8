package ledger

import "time"

// =============================================================================
// CALENDAR UTILITIES - Month normalization and due-date clamping
// =============================================================================
// Every date in the ledger is a UTC-midnight time.Time. Billing months are
// identified by their first day.

// Date builds a UTC-midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// MonthStart truncates to the first day of the date's month.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return Date(u.Year(), u.Month(), 1)
}

// AddMonths returns the first-of-month date n months after t's month.
func AddMonths(t time.Time, n int) time.Time {
	m := MonthStart(t)
	return m.AddDate(0, n, 0)
}

// MonthsBetween produces every month-start from start's month through end's
// month inclusive, ascending. Empty when start is after end. Generation is
// stateless: the same arguments always yield the same sequence.
func MonthsBetween(start, end time.Time) []time.Time {
	from := MonthStart(start)
	to := MonthStart(end)
	if from.After(to) {
		return nil
	}

	var months []time.Time
	for m := from; !m.After(to); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// DueDateForMonth clamps dueDay to the month's actual last day, so a due day
// of 31 lands on Feb 28 (29 in a leap year).
func DueDateForMonth(year int, month time.Month, dueDay int) time.Time {
	last := LastDayOfMonth(year, month)
	if dueDay > last {
		dueDay = last
	}
	return Date(year, month, dueDay)
}

// DaysBetween returns the whole days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}
