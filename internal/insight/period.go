// Package insight derives time-bounded views from a snapshot of ledger
// transactions: installment dues, recurring charges and outlier expenses.
//
// Every function here is pure. Callers pass the full transaction list and an
// explicit "now"; nothing is cached between calls, so results are safe to
// compute concurrently and are identical for identical input.
package insight

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerinsight/internal/core"
)

const (
	MonthMode PeriodMode = "month"
	WeekMode  PeriodMode = "week"

	Monday WeekStart = "mon"
	Sunday WeekStart = "sun"
)

type (
	PeriodMode string
	WeekStart  string

	// PeriodRequest selects the reporting window. Year and Month are only
	// read in month mode; zero values fall back to the month of "now".
	PeriodRequest struct {
		Mode      PeriodMode
		Year      int
		Month     time.Month
		WeekStart WeekStart
	}
)

var (
	ErrInvalidPeriodMode = errors.New("invalid period mode")
	ErrInvalidWeekStart  = errors.New("invalid week start")
)

// ParsePeriodMode is case-insensitive.
func ParsePeriodMode(s string) (PeriodMode, error) {
	switch m := PeriodMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MonthMode, WeekMode:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodMode, s)
	}
}

// ParseWeekStart accepts "mon"/"sun" and the full day names.
func ParseWeekStart(s string) (WeekStart, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mon", "monday":
		return Monday, nil
	case "sun", "sunday":
		return Sunday, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWeekStart, s)
	}
}

// Weekday maps the convention to a time.Weekday. Anything but Sunday is Monday.
func (w WeekStart) Weekday() time.Weekday {
	if w == Sunday {
		return time.Sunday
	}
	return time.Monday
}

// ResolveMonth returns the whole calendar month in loc.
func ResolveMonth(year int, month time.Month, loc *time.Location) core.Period {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := time.Date(year, month, core.DaysIn(year, month), 0, 0, 0, 0, loc)
	return core.Period{Start: start, End: core.EndOfDay(last)}
}

// ResolveWeek returns the seven days starting at the most recent weekStart
// weekday at or before now's calendar date. The week is laid out on the
// ledger calendar (UTC).
func ResolveWeek(now time.Time, weekStart WeekStart) core.Period {
	now = core.CalendarTime(now)
	offset := (int(now.Weekday()) - int(weekStart.Weekday()) + 7) % 7
	y, m, d := now.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	end := core.EndOfDay(time.Date(y, m, d-offset+6, 0, 0, 0, 0, time.UTC))
	return core.Period{Start: start, End: end}
}

// Resolve turns a request into a concrete period on the ledger calendar
// (UTC), using now's calendar date. It never fails: unknown modes resolve as
// month mode.
func Resolve(req PeriodRequest, now time.Time) core.Period {
	now = core.CalendarTime(now)
	if req.Mode == WeekMode {
		return ResolveWeek(now, req.WeekStart)
	}
	year, month := req.Year, req.Month
	if year == 0 {
		year = now.Year()
	}
	if month < time.January || month > time.December {
		month = now.Month()
	}
	return ResolveMonth(year, month, time.UTC)
}
