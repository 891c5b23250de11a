package cycle

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestCompute_LutealScenario(t *testing.T) {
	today := day(2026, time.March, 23)
	start := today.AddDate(0, 0, -21) // 22nd day counting the start day

	state, err := Compute(start, 28, today)
	require.NoError(t, err)
	assert.Equal(t, 22, state.Day)
	assert.Equal(t, PhaseLuteal, state.Phase)
	assert.Equal(t, 79, state.Progress)
}

func TestCompute_Boundaries(t *testing.T) {
	start := day(2026, time.January, 1)

	tests := []struct {
		day   int
		phase Phase
	}{
		{1, PhaseMenstrual},
		{5, PhaseMenstrual},
		{6, PhaseFollicular},
		{13, PhaseFollicular},
		{14, PhaseOvulatory},
		{17, PhaseOvulatory},
		{18, PhaseLuteal},
		{28, PhaseLuteal},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			state, err := Compute(start, 28, start.AddDate(0, 0, tt.day-1))
			require.NoError(t, err)
			assert.Equal(t, tt.day, state.Day)
			assert.Equal(t, tt.phase, state.Phase)
		})
	}
}

func TestCompute_WrapAround(t *testing.T) {
	start := day(2025, time.June, 10)

	// 3 full cycles and 4 days later.
	state, err := Compute(start, 30, start.AddDate(0, 0, 3*30+3))
	require.NoError(t, err)
	assert.Equal(t, 4, state.Day)
	assert.Equal(t, PhaseMenstrual, state.Phase)

	// Exactly one cycle later is day 1 again.
	state, err = Compute(start, 30, start.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Day)
}

func TestCompute_TimeOfDayIgnored(t *testing.T) {
	start := time.Date(2026, time.May, 1, 23, 59, 0, 0, time.UTC)
	asOf := time.Date(2026, time.May, 2, 0, 1, 0, 0, time.UTC)

	state, err := Compute(start, 28, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Day)
}

func TestCompute_RejectsShortCycle(t *testing.T) {
	_, err := Compute(day(2026, time.May, 1), 20, day(2026, time.May, 2))
	require.ErrorIs(t, err, ErrCycleLengthTooShort)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := day(2024, time.January, 1)

	for i := 0; i < 5000; i++ {
		length := MinCycleLength + rng.Intn(25)
		start := base.AddDate(0, 0, rng.Intn(700))
		asOf := base.AddDate(0, 0, rng.Intn(1400))

		state, err := Compute(start, length, asOf)
		require.NoError(t, err)
		require.GreaterOrEqual(t, state.Day, 1)
		require.LessOrEqual(t, state.Day, length)
		require.Equal(t, PhaseForDay(state.Day), state.Phase)
		require.GreaterOrEqual(t, state.Progress, 0)
		require.LessOrEqual(t, state.Progress, 100)

		again, err := Compute(start, length, asOf)
		require.NoError(t, err)
		require.Equal(t, state, again)
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(day(2026, time.March, 1), day(2026, time.March, 1)))
	assert.Equal(t, 1, DaysBetween(day(2026, time.February, 28), day(2026, time.March, 1)))
	assert.Equal(t, -3, DaysBetween(day(2026, time.March, 4), day(2026, time.March, 1)))
}
