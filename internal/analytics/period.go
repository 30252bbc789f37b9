// Package analytics derives revenue and volume figures from ticket history.
// The functions are pure: callers fetch tickets and pass them in together
// with the reference time.
package analytics

import (
	"fmt"
	"time"
)

// Range selects the window of company-wide analytics.
type Range string

const (
	Range7Days   Range = "7d"
	Range30Days  Range = "30d"
	Range90Days  Range = "90d"
	Range12Month Range = "12m"
	RangeAll     Range = "all"
)

// DefaultRange is used when a caller does not pick one.
const DefaultRange = Range30Days

func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case Range7Days, Range30Days, Range90Days, Range12Month, RangeAll:
		return r, nil
	case "":
		return DefaultRange, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Start returns the first instant of the range ending at now. The second
// value is false for RangeAll, which has no lower bound.
func (r Range) Start(now time.Time) (time.Time, bool) {
	switch r {
	case Range7Days:
		return now.AddDate(0, 0, -7), true
	case Range30Days:
		return now.AddDate(0, 0, -30), true
	case Range90Days:
		return now.AddDate(0, 0, -90), true
	case Range12Month:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// Window is a time interval. Contains treats both ends as inclusive unless
// Exclusive is set, in which case End is excluded.
type Window struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Exclusive bool      `json:"-"`
}

func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.Exclusive {
		return t.Before(w.End)
	}
	return !t.After(w.End)
}

// PreviousWindow returns the window of equal length that ends where the
// current one starts: [start - (now - start), start).
func PreviousWindow(start, now time.Time) Window {
	return Window{Start: start.Add(-now.Sub(start)), End: start, Exclusive: true}
}

// MonthWindow returns the calendar month containing t, from the first day at
// 00:00:00 to the last day at 23:59:59.999999999, in t's location.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// PreviousMonthWindow returns the calendar month before the one containing t.
func PreviousMonthWindow(t time.Time) Window {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return MonthWindow(first.AddDate(0, -1, 0))
}

// DayRange spans whole days from start's date 00:00:00 to end's date 23:59:59.
func DayRange(start, end time.Time) Window {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())
	return Window{Start: from, End: to}
}
