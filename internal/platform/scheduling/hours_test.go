package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appq/appq/pkg/apperrors"
)

func fullWeek() WeeklyHours {
	w := WeeklyHours{}
	for _, d := range Weekdays {
		w[d] = []Range{{"09:00", "17:00"}}
	}
	w["Saturday"] = []Range{}
	w["Sunday"] = []Range{}
	return w
}

func TestValidateWeeklyHours_Valid(t *testing.T) {
	breaks := WeeklyHours{"Monday": {{"12:00", "13:00"}}}
	assert.NoError(t, ValidateWeeklyHours(fullWeek(), breaks))
}

func TestValidateWeeklyHours_Violations(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(opening, breaks WeeklyHours)
		message string
	}{
		{
			name:    "missing day",
			mutate:  func(o, _ WeeklyHours) { delete(o, "Wednesday") },
			message: "Missing opening hours for Wednesday.",
		},
		{
			name:    "two opening ranges",
			mutate:  func(o, _ WeeklyHours) { o["Monday"] = []Range{{"09:00", "12:00"}, {"13:00", "17:00"}} },
			message: "Only one opening range is allowed for Monday.",
		},
		{
			name:    "start after end",
			mutate:  func(o, _ WeeklyHours) { o["Tuesday"] = []Range{{"17:00", "09:00"}} },
			message: "Opening start must be before end for Tuesday.",
		},
		{
			name:    "break outside opening",
			mutate:  func(_, b WeeklyHours) { b["Monday"] = []Range{{"08:00", "10:00"}} },
			message: "Break hours (08:00-10:00) for Monday must be within opening hours (09:00-17:00).",
		},
		{
			name:    "break equals opening",
			mutate:  func(_, b WeeklyHours) { b["Friday"] = []Range{{"09:00", "17:00"}} },
			message: "Break hours for Friday cannot fully overlap with opening hours.",
		},
		{
			name:    "break on closed day",
			mutate:  func(_, b WeeklyHours) { b["Sunday"] = []Range{{"10:00", "11:00"}} },
			message: "Break hours for Sunday are set but the day is closed.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opening, breaks := fullWeek(), WeeklyHours{}
			tc.mutate(opening, breaks)
			err := ValidateWeeklyHours(opening, breaks)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
			assert.Equal(t, tc.message, apperrors.Message(err))
		})
	}
}

func TestValidateWeeklyHours_BadFormat(t *testing.T) {
	opening := fullWeek()
	opening["Thursday"] = []Range{{"9am", "5pm"}}
	err := ValidateWeeklyHours(opening, nil)
	require.Error(t, err)
	assert.Contains(t, apperrors.Message(err), "Invalid time format for Thursday")
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Nowhere/City")
	assert.ErrorIs(t, err, ErrUnknownTimeZone)
}
