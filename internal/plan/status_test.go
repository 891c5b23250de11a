package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPlanned, StatusCompleted, true},
		{StatusPlanned, StatusMissed, true},
		{StatusMissed, StatusRescheduled, true},
		{StatusMissed, StatusCompleted, false},
		{StatusCompleted, StatusMissed, false},
		{StatusCompleted, StatusRescheduled, true},
		{StatusRescheduled, StatusCompleted, true},
		{Status("bogus"), StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestWeeklyPlan_Ranges(t *testing.T) {
	p := &WeeklyPlan{WeekStart: "2026-03-02", WeekEnd: "2026-03-08", Days: []DayPlan{{Date: "2026-03-02"}, {Date: "2026-03-03"}}}

	assert.True(t, p.Covers("2026-03-02"))
	assert.True(t, p.Covers("2026-03-08"))
	assert.False(t, p.Covers("2026-03-09"))
	assert.True(t, p.Overlaps("2026-03-08", "2026-03-14"))
	assert.False(t, p.Overlaps("2026-03-09", "2026-03-15"))
	assert.Equal(t, 1, p.Day("2026-03-03"))
	assert.Equal(t, -1, p.Day("2026-03-04"))
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2026-02-27", 2)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", got)

	_, err = AddDays("not-a-date", 1)
	require.Error(t, err)

	assert.Equal(t, "2026-01-05", DateKey(time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC)))
}

func TestWorkoutTier(t *testing.T) {
	assert.Equal(t, HighestTier, WorkoutTier(WorkoutHIIT))
	assert.Equal(t, 0, WorkoutTier(WorkoutYoga))
	assert.Equal(t, 1, WorkoutTier("climbing"))
	assert.Equal(t, 2, IntensityHigh.Tier())
}
