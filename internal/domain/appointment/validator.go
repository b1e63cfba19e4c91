package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appq/appq/internal/domain/organization"
	"github.com/appq/appq/internal/platform/scheduling"
	"github.com/appq/appq/pkg/apperrors"
)

const fieldScheduledTime = "scheduled_time"

// OverlapChecker reports whether a category already has an active booking
// intersecting [start, end).
type OverlapChecker interface {
	Overlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (bool, error)
}

// Validator decides whether a category can take a booking at a given time.
type Validator struct {
	bookings OverlapChecker
	clock    scheduling.Clock
}

func NewValidator(bookings OverlapChecker, clock scheduling.Clock) *Validator {
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	return &Validator{bookings: bookings, clock: clock}
}

// CheckHorizon rejects times in the past or beyond the category's booking
// horizon.
func (v *Validator) CheckHorizon(cat *organization.Category, at time.Time) error {
	loc, err := cat.Location()
	if err != nil {
		return apperrors.NewInternalError("invalid category time zone", err)
	}
	now := v.clock.Now().In(loc)
	if at.Before(now) {
		return apperrors.NewFieldError(fieldScheduledTime, "Scheduled time cannot be in the past.")
	}
	if at.After(now.AddDate(0, 0, cat.MaxAdvanceDays)) {
		return apperrors.NewFieldError(fieldScheduledTime,
			fmt.Sprintf("Scheduled time cannot be more than %d days in advance.", cat.MaxAdvanceDays))
	}
	return nil
}

// Validate checks, in order, that the category is open on the day of at,
// that at lies inside its opening hours and outside its breaks, that at is
// the start of one of the day's slots and that no active booking overlaps
// the slot. Malformed stored hours are reported as internal errors.
func (v *Validator) Validate(ctx context.Context, cat *organization.Category, at time.Time) error {
	loc, err := cat.Location()
	if err != nil {
		return apperrors.NewInternalError("invalid category time zone", err)
	}
	local := at.In(loc)
	weekday := local.Weekday().String()

	opening := cat.OpeningHours.Day(weekday)
	if len(opening) == 0 {
		return apperrors.NewFieldError(fieldScheduledTime,
			fmt.Sprintf("Not accepting appointments for %s.", weekday))
	}

	ok, err := scheduling.IsWithinOpeningHours(local, opening, cat.BreakHours.Day(weekday), cat.TimeZone)
	if err != nil {
		return apperrors.NewInternalError("invalid category hours", err)
	}
	if !ok {
		return apperrors.NewFieldError(fieldScheduledTime, "Scheduled time is not within allowed hours.")
	}

	slots, err := cat.SlotsFor(weekday)
	if err != nil {
		return apperrors.NewInternalError("invalid category hours", err)
	}
	starts := scheduling.SlotStarts(slots)
	if !aligned(local, starts) {
		return apperrors.NewFieldError(fieldScheduledTime, fmt.Sprintf(
			"Scheduled time must match one of the available start times: %s.", strings.Join(starts, ", ")))
	}

	taken, err := v.bookings.Overlaps(ctx, cat.ID, at, at.Add(cat.Interval()))
	if err != nil {
		return fmt.Errorf("check slot availability: %w", err)
	}
	if taken {
		return apperrors.NewFieldError(fieldScheduledTime, "The selected time slot is already taken.")
	}
	return nil
}

func aligned(local time.Time, starts []string) bool {
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	clock := scheduling.FormatClock(local.Hour()*60 + local.Minute())
	for _, s := range starts {
		if s == clock {
			return true
		}
	}
	return false
}
