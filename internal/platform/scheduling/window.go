package scheduling

import (
	"fmt"
	"time"
)

// naiveLayouts are accepted by ParseInstant for inputs without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant parses a client supplied timestamp. Values carrying an offset
// are converted into loc. Values without one are read as wall-clock time in
// loc (the clock reading is kept, not shifted).
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Localize(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// Localize attaches loc to the wall-clock reading of t without shifting it.
func Localize(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// IsWithinOpeningHours reports whether instant falls inside one of the opening
// ranges and outside every break range. Ranges are anchored on the calendar
// date of instant in tz and are half-open: the start is included, the end is
// not. A malformed range is an error, as is an unknown tz.
func IsWithinOpeningHours(instant time.Time, opening, breaks []Range, tz string) (bool, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return false, err
	}
	local := instant.In(loc)

	inOpening, err := inAnyRange(local, opening, loc)
	if err != nil {
		return false, fmt.Errorf("opening range: %w", err)
	}
	inBreak, err := inAnyRange(local, breaks, loc)
	if err != nil {
		return false, fmt.Errorf("break range: %w", err)
	}
	return inOpening && !inBreak, nil
}

func inAnyRange(local time.Time, ranges []Range, loc *time.Location) (bool, error) {
	found := false
	for _, r := range ranges {
		s, e, err := r.Bounds()
		if err != nil {
			return false, err
		}
		start := anchor(local, s, loc)
		end := anchor(local, e, loc)
		if !local.Before(start) && local.Before(end) {
			found = true
		}
	}
	return found, nil
}

func anchor(day time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
}

// WeekdayName returns the weekday of t in loc, e.g. "Monday".
func WeekdayName(t time.Time, loc *time.Location) string {
	return t.In(loc).Weekday().String()
}

// ClockOf returns the HH:MM wall-clock reading of t in loc.
func ClockOf(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return FormatClock(local.Hour()*60 + local.Minute())
}
