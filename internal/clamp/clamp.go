package clamp

import (
	"math"

	"github.com/fyrsmithlabs/cadence/internal/plan"
)

// Calorie bounds in kcal.
const (
	// KilojouleThreshold marks values assumed to be kJ rather than kcal.
	KilojouleThreshold = 5000
	KilojoulesPerKcal  = 4.184

	MinDailyCalories = 1200
	MaxDailyCalories = 4000

	// Two-sided ranges allow a slightly higher upper bound.
	MaxRangeCalories = 4200
	MinRangeSpread   = 100
	MaxRangeMin      = MaxRangeCalories - MinRangeSpread
)

// Macro fraction bounds.
const (
	MinMacroFraction = 0.05
	MaxMacroFraction = 0.8
	MinMacroSum      = 0.95
	MaxMacroSum      = 1.05
)

// Score bounds. NaN scores fall back to NeutralScore.
const (
	MinScore     = 0.0
	MaxScore     = 1.0
	NeutralScore = 0.5
)

// Workout duration bounds in minutes.
const (
	MinDurationMin = 0
	MaxDurationMin = 240
)

// Feedback rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// counter tallies how many values were changed.
type counter struct {
	n int
}

func (c *counter) int(before, after int) int {
	if before != after {
		c.n++
	}
	return after
}

func (c *counter) float(before, after float64) float64 {
	if before != after && !(math.IsNaN(before) && math.IsNaN(after)) {
		c.n++
	}
	return after
}

// Normalize returns a copy of d with every numeric field bounded.
func Normalize(d plan.Decision) plan.Decision {
	out, _ := NormalizeCounted(d)
	return out
}

// NormalizeCounted is Normalize that also reports how many values were
// corrected.
func NormalizeCounted(d plan.Decision) (plan.Decision, int) {
	c := &counter{}

	d.Metabolic.FuelRisk = c.float(d.Metabolic.FuelRisk, Score(d.Metabolic.FuelRisk))
	d.Metabolic.CarbNeed = c.float(d.Metabolic.CarbNeed, Score(d.Metabolic.CarbNeed))
	d.Psychology.AdherenceRisk = c.float(d.Psychology.AdherenceRisk, Score(d.Psychology.AdherenceRisk))
	d.Stress.Load = c.float(d.Stress.Load, Score(d.Stress.Load))
	d.FatigueRisk = c.float(d.FatigueRisk, Score(d.FatigueRisk))

	d.TodayFocus.Calories = c.int(d.TodayFocus.Calories, DailyCalories(d.TodayFocus.Calories))
	d.TodayFocus.DurationMin = c.int(d.TodayFocus.DurationMin, Duration(d.TodayFocus.DurationMin))
	d.MacroTargets = c.macros(d.MacroTargets)

	if d.WeekPreview != nil {
		days := make([]plan.DayPlan, len(d.WeekPreview))
		for i, day := range d.WeekPreview {
			days[i] = c.day(day)
		}
		d.WeekPreview = days
	}
	return d, c.n
}

// Day returns a copy of day with its targets bounded.
func Day(day plan.DayPlan) plan.DayPlan {
	return (&counter{}).day(day)
}

func (c *counter) day(day plan.DayPlan) plan.DayPlan {
	day.CalorieTarget = c.calorieRange(day.CalorieTarget)
	day.MacroTargets = c.macros(day.MacroTargets)
	day.Workout.DurationMin = c.int(day.Workout.DurationMin, Duration(day.Workout.DurationMin))
	if day.Feedback != nil {
		fb := *day.Feedback
		fb.Rating = c.int(fb.Rating, Rating(fb.Rating))
		fb.Energy = c.int(fb.Energy, Rating(fb.Energy))
		day.Feedback = &fb
	}
	return day
}

func (c *counter) calorieRange(r plan.CalorieRange) plan.CalorieRange {
	out := CalorieRange(r)
	c.int(r.Min, out.Min)
	c.int(r.Max, out.Max)
	return out
}

func (c *counter) macros(m plan.MacroTargets) plan.MacroTargets {
	out := Macros(m)
	c.float(m.ProteinPct, out.ProteinPct)
	c.float(m.CarbsPct, out.CarbsPct)
	c.float(m.FatsPct, out.FatsPct)
	return out
}

// Score clamps a risk or need score to [0,1].
func Score(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// Scores returns a bounded copy of a score map.
func Scores(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = Score(v)
	}
	return out
}

// kcal converts a value that looks like kilojoules into kcal.
func kcal(v int) int {
	if v > KilojouleThreshold {
		return int(math.Round(float64(v) / KilojoulesPerKcal))
	}
	return v
}

// DailyCalories bounds a single-day calorie value.
func DailyCalories(v int) int {
	return clampInt(kcal(v), MinDailyCalories, MaxDailyCalories)
}

// CalorieRange bounds a two-sided calorie target and guarantees
// Max >= Min + MinRangeSpread.
func CalorieRange(r plan.CalorieRange) plan.CalorieRange {
	lo, hi := kcal(r.Min), kcal(r.Max)
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = clampInt(lo, MinDailyCalories, MaxRangeMin)
	hi = clampInt(hi, MinDailyCalories, MaxRangeCalories)
	if hi < lo+MinRangeSpread {
		hi = lo + MinRangeSpread
	}
	return plan.CalorieRange{Min: lo, Max: hi}
}

// Macros bounds macro fractions and rebalances them to sum to about 1.
func Macros(m plan.MacroTargets) plan.MacroTargets {
	v := [3]float64{m.ProteinPct, m.CarbsPct, m.FatsPct}
	for i := range v {
		v[i] = round4(fraction(v[i]))
	}

	// The sum is checked on rounded values so a second pass sees the same sum.
	sum := v[0] + v[1] + v[2]
	if sum < MinMacroSum || sum > MaxMacroSum {
		v = rebalance(v)
		for i := range v {
			v[i] = round4(v[i])
		}
	}

	return plan.MacroTargets{ProteinPct: v[0], CarbsPct: v[1], FatsPct: v[2]}
}

// fraction converts percentages to fractions and clamps to the macro bounds.
func fraction(v float64) float64 {
	if math.IsNaN(v) {
		return MinMacroFraction
	}
	if v > 1 {
		v /= 100
	}
	return math.Max(MinMacroFraction, math.Min(MaxMacroFraction, v))
}

// rebalance scales bounded fractions to sum to 1. Fractions that hit a bound
// are pinned and the remainder is spread over the others.
func rebalance(v [3]float64) [3]float64 {
	var pinned [3]bool
	for pass := 0; pass < len(v); pass++ {
		var pinnedSum, freeSum float64
		for i := range v {
			if pinned[i] {
				pinnedSum += v[i]
			} else {
				freeSum += v[i]
			}
		}
		if freeSum == 0 {
			break
		}

		scale := (1 - pinnedSum) / freeSum
		changed := false
		for i := range v {
			if pinned[i] {
				continue
			}
			x := v[i] * scale
			switch {
			case x > MaxMacroFraction:
				x, pinned[i], changed = MaxMacroFraction, true, true
			case x < MinMacroFraction:
				x, pinned[i], changed = MinMacroFraction, true, true
			}
			v[i] = x
		}
		if !changed {
			break
		}
	}
	return v
}

// Duration bounds a workout duration in minutes.
func Duration(v int) int {
	return clampInt(v, MinDurationMin, MaxDurationMin)
}

// Rating bounds a 1-5 feedback value. Zero means unset and is kept.
func Rating(v int) int {
	if v == 0 {
		return 0
	}
	return clampInt(v, MinRating, MaxRating)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
