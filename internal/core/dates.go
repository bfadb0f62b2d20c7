package core

import "time"

// Period is an inclusive [Start, End] window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// CalendarTime re-reads t's wall clock in UTC, the zone ledger dates live in.
// 2025-03-01 20:00 EST becomes 2025-03-01 20:00 UTC, so comparisons against
// ledger dates follow the calendar date the caller sees, not the instant.
func CalendarTime(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// AddCalendarMonths moves t forward by n calendar months keeping the day of
// month, clamped to the last day of the target month (Jan 31 + 1 -> Feb 28).
// time.AddDate would roll over into March instead.
func AddCalendarMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := DaysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthsElapsed is the calendar year/month difference between start and now,
// ignoring days: Jan 31 -> Feb 1 counts as one month.
func MonthsElapsed(start, now time.Time) int {
	start, now = CalendarTime(start), CalendarTime(now)
	return (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
}

// TrailingWindow returns the inclusive window of the given number of calendar
// days ending at now, on the ledger calendar.
func TrailingWindow(now time.Time, days int) Period {
	now = CalendarTime(now)
	return Period{Start: now.AddDate(0, 0, -days), End: now}
}
