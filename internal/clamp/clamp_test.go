package clamp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cadence/internal/plan"
)

func TestCalorieRange_KilojouleScenario(t *testing.T) {
	got := CalorieRange(plan.CalorieRange{Min: 8000, Max: 8800})

	assert.Equal(t, 1912, got.Min)
	assert.Equal(t, 2103, got.Max)
	assert.GreaterOrEqual(t, got.Max, got.Min+MinRangeSpread)
}

func TestCalorieRange(t *testing.T) {
	tests := []struct {
		name string
		in   plan.CalorieRange
		want plan.CalorieRange
	}{
		{"in range", plan.CalorieRange{Min: 1800, Max: 2100}, plan.CalorieRange{Min: 1800, Max: 2100}},
		{"too narrow", plan.CalorieRange{Min: 2000, Max: 2020}, plan.CalorieRange{Min: 2000, Max: 2100}},
		{"reversed", plan.CalorieRange{Min: 2300, Max: 1900}, plan.CalorieRange{Min: 1900, Max: 2300}},
		{"below floor", plan.CalorieRange{Min: 300, Max: 600}, plan.CalorieRange{Min: 1200, Max: 1300}},
		{"above ceiling", plan.CalorieRange{Min: 4500, Max: 4900}, plan.CalorieRange{Min: 4100, Max: 4200}},
		{"zero", plan.CalorieRange{}, plan.CalorieRange{Min: 1200, Max: 1300}},
		{"huge kJ", plan.CalorieRange{Min: 30000, Max: 40000}, plan.CalorieRange{Min: 4100, Max: 4200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalorieRange(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Less(t, got.Min, got.Max)
		})
	}
}

func TestDailyCalories(t *testing.T) {
	assert.Equal(t, 2000, DailyCalories(2000))
	assert.Equal(t, 1912, DailyCalories(8000))
	assert.Equal(t, MinDailyCalories, DailyCalories(-50))
	assert.Equal(t, MaxDailyCalories, DailyCalories(4800))
	assert.Equal(t, MaxDailyCalories, DailyCalories(math.MaxInt32))
	assert.Equal(t, MinDailyCalories, DailyCalories(math.MinInt32))
}

func TestMacros(t *testing.T) {
	tests := []struct {
		name string
		in   plan.MacroTargets
	}{
		{"fractions", plan.MacroTargets{ProteinPct: 0.3, CarbsPct: 0.4, FatsPct: 0.3}},
		{"percentages", plan.MacroTargets{ProteinPct: 30, CarbsPct: 45, FatsPct: 25}},
		{"mixed", plan.MacroTargets{ProteinPct: 30, CarbsPct: 0.45, FatsPct: 0.25}},
		{"zeros", plan.MacroTargets{}},
		{"one dominant", plan.MacroTargets{ProteinPct: 0.95, CarbsPct: 0.01, FatsPct: 0.01}},
		{"all capped", plan.MacroTargets{ProteinPct: 90, CarbsPct: 90, FatsPct: 90}},
		{"nan", plan.MacroTargets{ProteinPct: math.NaN(), CarbsPct: 0.5, FatsPct: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Macros(tt.in)
			for _, v := range []float64{got.ProteinPct, got.CarbsPct, got.FatsPct} {
				assert.GreaterOrEqual(t, v, MinMacroFraction)
				assert.LessOrEqual(t, v, MaxMacroFraction)
			}
			assert.InDelta(t, 1.0, got.Sum(), 0.05)
			assert.Equal(t, got, Macros(got))
		})
	}

	got := Macros(plan.MacroTargets{ProteinPct: 30, CarbsPct: 45, FatsPct: 25})
	assert.Equal(t, plan.MacroTargets{ProteinPct: 0.3, CarbsPct: 0.45, FatsPct: 0.25}, got)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(-0.3))
	assert.Equal(t, 1.0, Score(7))
	assert.Equal(t, 0.42, Score(0.42))
	assert.Equal(t, NeutralScore, Score(math.NaN()))
	assert.Equal(t, 1.0, Score(math.Inf(1)))
	assert.Nil(t, Scores(nil))
	assert.Equal(t, map[string]float64{"a": 1, "b": 0}, Scores(map[string]float64{"a": 3, "b": -1}))
}

func TestNormalize_CountsCorrections(t *testing.T) {
	d := plan.Decision{
		Metabolic:    plan.Metabolic{FuelRisk: 1.4, CarbNeed: 0.5},
		TodayFocus:   plan.TodayFocus{Calories: 2000, DurationMin: 45},
		MacroTargets: plan.MacroTargets{ProteinPct: 0.3, CarbsPct: 0.4, FatsPct: 0.3},
	}

	out, n := NormalizeCounted(d)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, out.Metabolic.FuelRisk)

	_, n = NormalizeCounted(out)
	assert.Zero(t, n)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	days := []plan.DayPlan{{Date: "2026-03-01", CalorieTarget: plan.CalorieRange{Min: 8000, Max: 8800}}}
	d := plan.Decision{WeekPreview: days}

	out := Normalize(d)
	assert.Equal(t, 8000, days[0].CalorieTarget.Min)
	assert.Equal(t, 1912, out.WeekPreview[0].CalorieTarget.Min)
}

func randomDecision(rng *rand.Rand) plan.Decision {
	f := func() float64 { return rng.Float64()*3 - 1 }
	macro := func() float64 {
		if rng.Intn(2) == 0 {
			return rng.Float64() * 100
		}
		return rng.Float64() * 1.2
	}
	cal := func() int { return rng.Intn(20000) - 500 }

	d := plan.Decision{
		Metabolic:    plan.Metabolic{FuelRisk: f(), CarbNeed: f()},
		Psychology:   plan.Psychology{AdherenceRisk: f()},
		Stress:       plan.Stress{Load: f()},
		FatigueRisk:  f(),
		TodayFocus:   plan.TodayFocus{Calories: cal(), DurationMin: rng.Intn(600) - 100},
		MacroTargets: plan.MacroTargets{ProteinPct: macro(), CarbsPct: macro(), FatsPct: macro()},
	}
	for i := 0; i < rng.Intn(8); i++ {
		d.WeekPreview = append(d.WeekPreview, plan.DayPlan{
			CalorieTarget: plan.CalorieRange{Min: cal(), Max: cal()},
			MacroTargets:  plan.MacroTargets{ProteinPct: macro(), CarbsPct: macro(), FatsPct: macro()},
			Workout:       plan.Workout{DurationMin: rng.Intn(600) - 100},
			Feedback:      &plan.Feedback{Rating: rng.Intn(12) - 3, Energy: rng.Intn(12) - 3},
		})
	}
	return d
}

func TestNormalize_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		once := Normalize(randomDecision(rng))
		twice := Normalize(once)
		require.Equal(t, once, twice)

		require.GreaterOrEqual(t, once.TodayFocus.Calories, MinDailyCalories)
		require.LessOrEqual(t, once.TodayFocus.Calories, MaxDailyCalories)
		require.InDelta(t, 1.0, once.MacroTargets.Sum(), 0.05)
		for _, day := range once.WeekPreview {
			require.Less(t, day.CalorieTarget.Min, day.CalorieTarget.Max)
			require.GreaterOrEqual(t, day.CalorieTarget.Max, day.CalorieTarget.Min+MinRangeSpread)
			require.LessOrEqual(t, day.CalorieTarget.Max, MaxRangeCalories)
		}
	}
}
