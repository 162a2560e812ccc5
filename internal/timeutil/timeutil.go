package timeutil

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidRange = errors.New("invalid range")

// Range presets accepted by the dashboard filter. Presets resolve
// against calendar boundaries in the reporting timezone, not fixed
// durations, so month and quarter lengths come out right.
const (
	PresetLastDay     = "last_day"
	PresetLast7       = "last_7"
	PresetLastMonth   = "last_month"
	PresetLastQuarter = "last_quarter"
	PresetLastYear    = "last_year"
	PresetCurrentYear = "current_year"
	PresetCustom      = "custom"
)

// Interval is a half-open time range [From, To) anchored to a location.
type Interval struct {
	from time.Time
	to   time.Time
	loc  *time.Location
}

// EnsureLocation returns UTC when loc is nil.
func EnsureLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// NewInterval constructs an interval covering [from, to).
func NewInterval(from, to time.Time, loc *time.Location) (Interval, error) {
	loc = EnsureLocation(loc)
	from = from.In(loc)
	to = to.In(loc)
	if !to.After(from) {
		return Interval{}, ErrInvalidRange
	}
	return Interval{from: from, to: to, loc: loc}, nil
}

// From returns the inclusive start of the interval.
func (iv Interval) From() time.Time { return iv.from }

// To returns the exclusive end of the interval.
func (iv Interval) To() time.Time { return iv.to }

// Bounds returns the from/to timestamps.
func (iv Interval) Bounds() (time.Time, time.Time) { return iv.from, iv.to }

// Location returns the reporting timezone for the interval.
func (iv Interval) Location() *time.Location { return EnsureLocation(iv.loc) }

// FromString returns the start timestamp formatted as RFC3339 in the interval's zone.
func (iv Interval) FromString() string { return iv.from.In(iv.Location()).Format(time.RFC3339) }

// ToString returns the end timestamp formatted as RFC3339 in the interval's zone.
func (iv Interval) ToString() string { return iv.to.In(iv.Location()).Format(time.RFC3339) }

// Contains reports whether ts falls within [from, to).
func (iv Interval) Contains(ts time.Time) bool {
	return !ts.Before(iv.from) && ts.Before(iv.to)
}

// ResolveRange turns a symbolic preset (or explicit bounds for "custom")
// into a concrete interval relative to now. The custom preset requires
// both bounds; every other preset ignores them.
func ResolveRange(preset string, from, to *time.Time, now time.Time, loc *time.Location) (Interval, error) {
	loc = EnsureLocation(loc)
	now = now.In(loc)
	switch normalizePreset(preset) {
	case PresetLastDay:
		end := StartOfDay(now, loc)
		return NewInterval(end.AddDate(0, 0, -1), end, loc)
	case PresetLast7:
		end := StartOfDay(now, loc)
		return NewInterval(end.AddDate(0, 0, -7), end, loc)
	case PresetLastMonth:
		end := StartOfMonth(now, loc)
		return NewInterval(end.AddDate(0, -1, 0), end, loc)
	case PresetLastQuarter:
		end := StartOfQuarter(now, loc)
		return NewInterval(end.AddDate(0, -3, 0), end, loc)
	case PresetLastYear:
		end := StartOfYear(now, loc)
		return NewInterval(end.AddDate(-1, 0, 0), end, loc)
	case PresetCurrentYear:
		start := StartOfYear(now, loc)
		return NewInterval(start, start.AddDate(1, 0, 0), loc)
	case PresetCustom:
		if from == nil || to == nil {
			return Interval{}, ErrInvalidRange
		}
		return NewInterval(*from, *to, loc)
	default:
		return Interval{}, ErrInvalidRange
	}
}

// YearInterval returns the calendar-year interval [Jan 1 year, Jan 1 year+1).
func YearInterval(year int, loc *time.Location) Interval {
	loc = EnsureLocation(loc)
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Interval{from: start, to: start.AddDate(1, 0, 0), loc: loc}
}

// StartOfDay normalizes the timestamp to midnight in the provided zone.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfMonth normalizes the timestamp to the first instant of its month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// StartOfQuarter normalizes the timestamp to the first day of its
// 3-month block (Jan, Apr, Jul, Oct).
func StartOfQuarter(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	month := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, loc)
}

// StartOfYear normalizes the timestamp to January 1 of its year.
func StartOfYear(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
}

// Quarter returns the 1-based quarter index of the timestamp.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func normalizePreset(preset string) string {
	return strings.ToLower(strings.TrimSpace(preset))
}
