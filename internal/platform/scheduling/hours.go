package scheduling

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/appq/appq/pkg/apperrors"
)

var (
	// ErrMalformedRange is returned when a stored range is not a [start, end] pair.
	ErrMalformedRange = errors.New("range must be a [start, end] pair")
	// ErrInvalidClock is returned for time-of-day values that are not HH:MM.
	ErrInvalidClock = errors.New("time must be in HH:MM format")
	// ErrInvalidInterval is returned for non-positive slot intervals.
	ErrInvalidInterval = errors.New("interval must be a positive number of minutes")
	// ErrUnknownTimeZone is returned when an IANA zone name cannot be resolved.
	ErrUnknownTimeZone = errors.New("unknown time zone")
)

// Weekdays lists the weekday keys of WeeklyHours in calendar order.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Range is a wall-clock [start, end] pair, e.g. ["09:00", "17:00"]. It is a
// slice rather than an array so that malformed stored data can be detected.
type Range []string

// WeeklyHours maps a weekday name to its ranges. An empty list means closed.
type WeeklyHours map[string][]Range

// ParseClock converts HH:MM into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Bounds returns the range as minutes since midnight.
func (r Range) Bounds() (start, end int, err error) {
	if len(r) != 2 {
		return 0, 0, fmt.Errorf("%w: got %d element(s)", ErrMalformedRange, len(r))
	}
	if start, err = ParseClock(r[0]); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(r[1]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Day returns the ranges configured for weekday, or nil when absent.
func (w WeeklyHours) Day(weekday string) []Range {
	if w == nil {
		return nil
	}
	return w[weekday]
}

// LoadLocation resolves an IANA time zone name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimeZone, name)
	}
	return loc, nil
}

// ValidateWeeklyHours checks a category's opening and break hours. Every
// weekday must be present in opening; a day holds at most one opening range;
// breaks must sit strictly inside the day's opening range without covering it
// entirely. The first violation is returned as a field validation error.
func ValidateWeeklyHours(opening, breaks WeeklyHours) error {
	for _, day := range Weekdays {
		ranges, ok := opening[day]
		if !ok {
			return apperrors.NewFieldError("opening_hours", fmt.Sprintf("Missing opening hours for %s.", day))
		}
		if len(ranges) > 1 {
			return apperrors.NewFieldError("opening_hours", fmt.Sprintf("Only one opening range is allowed for %s.", day))
		}

		var openStart, openEnd int
		if len(ranges) == 1 {
			s, e, err := ranges[0].Bounds()
			if err != nil {
				return apperrors.NewFieldError("opening_hours", fmt.Sprintf("Invalid time format for %s: %v.", day, ranges[0]))
			}
			if s >= e {
				return apperrors.NewFieldError("opening_hours", fmt.Sprintf("Opening start must be before end for %s.", day))
			}
			openStart, openEnd = s, e
		}

		for _, br := range breaks.Day(day) {
			if len(ranges) == 0 {
				return apperrors.NewFieldError("break_hours", fmt.Sprintf("Break hours for %s are set but the day is closed.", day))
			}
			s, e, err := br.Bounds()
			if err != nil {
				return apperrors.NewFieldError("break_hours", fmt.Sprintf("Invalid time format for %s: %v.", day, br))
			}
			if s >= e {
				return apperrors.NewFieldError("break_hours", fmt.Sprintf("Break start must be before end for %s.", day))
			}
			if s < openStart || e > openEnd {
				return apperrors.NewFieldError("break_hours", fmt.Sprintf(
					"Break hours (%s-%s) for %s must be within opening hours (%s-%s).",
					br[0], br[1], day, ranges[0][0], ranges[0][1]))
			}
			if s == openStart && e == openEnd {
				return apperrors.NewFieldError("break_hours", fmt.Sprintf("Break hours for %s cannot fully overlap with opening hours.", day))
			}
		}
	}

	for day := range breaks {
		if _, ok := opening[day]; !ok {
			return apperrors.NewFieldError("break_hours", fmt.Sprintf("Unknown weekday %q in break hours.", day))
		}
	}
	for day := range opening {
		if !isWeekday(day) {
			return apperrors.NewFieldError("opening_hours", fmt.Sprintf("Unknown weekday %q in opening hours.", day))
		}
	}
	return nil
}

func isWeekday(name string) bool {
	for _, d := range Weekdays {
		if d == name {
			return true
		}
	}
	return false
}
