package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	AllTimeGranularity Granularity = "all-time"
	YearlyGranularity  Granularity = "yearly"
	MonthlyGranularity Granularity = "monthly"
	CustomGranularity  Granularity = "custom"
)

type Granularity string

// Window scopes an analytics computation. A zero Start or End leaves that
// side unbounded.
type Window struct {
	Start       Date        `json:"start_date"`
	End         Date        `json:"end_date"`
	Granularity Granularity `json:"granularity"`
}

func AllTime() Window {
	return Window{Granularity: AllTimeGranularity}
}

func Year(year int) Window {
	return Window{
		Start:       NewDate(year, 1, 1),
		End:         NewDate(year, 12, 31),
		Granularity: YearlyGranularity,
	}
}

func Month(year, month int) Window {
	return Window{
		Start:       NewDate(year, month, 1),
		End:         NewDate(year, month, DaysIn(year, month)),
		Granularity: MonthlyGranularity,
	}
}

func Custom(start, end Date) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: custom window needs both bounds", ErrInvalidWindow)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow, end, start)
	}
	return Window{Start: start, End: end, Granularity: CustomGranularity}, nil
}

// Contains reports whether d falls inside the window, bounds included.
func (w Window) Contains(d Date) bool {
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// Bounded reports whether both ends of the window are set.
func (w Window) Bounded() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// WindowForPeriod maps a named period onto a custom window relative to today.
// Weeks run Monday to Sunday.
func WindowForPeriod(period string, today Date) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "today":
		return Custom(today, today)
	case "week", "this_week":
		start := startOfWeek(today)
		return Custom(start, start.AddDays(6))
	case "month", "this_month":
		w := Month(today.Year(), today.Month())
		w.Granularity = CustomGranularity
		return w, nil
	case "year", "this_year":
		w := Year(today.Year())
		w.Granularity = CustomGranularity
		return w, nil
	case "last_week":
		start := startOfWeek(today).AddDays(-7)
		return Custom(start, start.AddDays(6))
	case "last_month":
		prev := NewDate(today.Year(), today.Month(), 1).AddMonths(-1)
		w := Month(prev.Year(), prev.Month())
		w.Granularity = CustomGranularity
		return w, nil
	case "all", "all_time", "all-time":
		return AllTime(), nil
	}
	return Window{}, fmt.Errorf("%w: unknown period %q", ErrInvalidWindow, period)
}

func startOfWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Today returns the current calendar date in UTC.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateOf(now().UTC())
}
