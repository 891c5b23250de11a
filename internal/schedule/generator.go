package schedule

import (
	"math"
	"slices"
	"time"

	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/cycle"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/source"
	"github.com/fyrsmithlabs/cadence/internal/synth"
)

// DefaultCycleLength is used when neither the profile nor the caller
// supplies one.
const DefaultCycleLength = 28

// Generator builds DayPlans from a profile and the cycle position of each
// date. It holds no state beyond its configuration.
type Generator struct {
	cycleLength int
}

// NewGenerator creates a generator. Lengths below the cycle minimum fall
// back to DefaultCycleLength.
func NewGenerator(defaultCycleLength int) *Generator {
	if defaultCycleLength < cycle.MinCycleLength {
		defaultCycleLength = DefaultCycleLength
	}
	return &Generator{cycleLength: defaultCycleLength}
}

// CycleState returns the cycle position of date for p. ok is false when the
// profile has no usable period start.
func (g *Generator) CycleState(p profile.Profile, date time.Time) (cycle.State, bool) {
	if p.LastPeriodStart == "" {
		return cycle.State{}, false
	}
	start, err := plan.ParseDate(p.LastPeriodStart, date.Location())
	if err != nil {
		return cycle.State{}, false
	}
	length := p.CycleLength
	if length < cycle.MinCycleLength {
		length = g.cycleLength
	}
	st, err := cycle.Compute(start, length, date)
	if err != nil {
		return cycle.State{}, false
	}
	return st, true
}

// Day builds the plan for one date. prev is the day before, used to avoid
// back-to-back Push days; it may be nil.
func (g *Generator) Day(p profile.Profile, date time.Time, prev *plan.DayPlan) plan.DayPlan {
	day := plan.DayPlan{
		Date:      plan.DateKey(date),
		Readiness: plan.ReadinessMaintain,
		Workout: plan.Workout{
			Title:       source.FallbackWorkoutTitle,
			Type:        source.FallbackWorkoutType,
			DurationMin: source.FallbackDurationMin,
			Intensity:   source.FallbackIntensity,
		},
		MacroTargets: plan.MacroTargets{
			ProteinPct: source.FallbackProteinPct,
			CarbsPct:   source.FallbackCarbsPct,
			FatsPct:    source.FallbackFatsPct,
		},
		NutritionTip: source.FallbackNutritionTip,
		Status:       plan.StatusPlanned,
	}

	st, known := g.CycleState(p, date)
	if known {
		day.Phase = st.Phase
		day.Readiness = PhaseReadiness(st)
		day.Workout = source.PhaseWorkout(st)
		day.MacroTargets = source.PhaseMacros(st.Phase)
		day.NutritionTip = source.PhaseTip(st.Phase)
	}
	if prev != nil && day.Readiness == plan.ReadinessPush && hardDay(*prev) {
		day.Readiness = plan.ReadinessMaintain
	}
	day.Workout = FitWorkout(day.Workout, day.Readiness)
	day.CalorieTarget = calorieRange(p, st.Phase)

	return clamp.Day(day)
}

// Days builds n consecutive days starting at from.
func (g *Generator) Days(p profile.Profile, from time.Time, n int, prev *plan.DayPlan) []plan.DayPlan {
	days := make([]plan.DayPlan, 0, n)
	for i := 0; i < n; i++ {
		d := g.Day(p, from.AddDate(0, 0, i), prev)
		days = append(days, d)
		prev = &days[len(days)-1]
	}
	return days
}

// Preview builds n days from the decision's date, with the first day taken
// from the decision itself.
func (g *Generator) Preview(p profile.Profile, d plan.Decision, from time.Time, n int) []plan.DayPlan {
	if n <= 0 {
		return nil
	}
	first := ApplyDecision(g.Day(p, from, nil), d)
	return append([]plan.DayPlan{first}, g.Days(p, from.AddDate(0, 0, 1), n-1, &first)...)
}

// ApplyDecision overrides day with the decision's headline recommendation.
func ApplyDecision(day plan.DayPlan, d plan.Decision) plan.DayPlan {
	if d.Readiness.IsValid() {
		day.Readiness = d.Readiness
	}
	if f := d.TodayFocus; f.WorkoutType != "" {
		title := day.Workout.Title
		if f.WorkoutType != day.Workout.Type {
			title = WorkoutTitle(f.WorkoutType)
		}
		day.Workout = plan.Workout{
			Title:       title,
			Type:        f.WorkoutType,
			DurationMin: f.DurationMin,
			Intensity:   f.Intensity,
		}
	}
	if d.TodayFocus.Calories > 0 {
		day.CalorieTarget = plan.CalorieRange{
			Min: d.TodayFocus.Calories - source.CalorieSpread,
			Max: d.TodayFocus.Calories + source.CalorieSpread,
		}
	}
	if d.MacroTargets.Sum() > 0 {
		day.MacroTargets = d.MacroTargets
	}
	if d.TodayFocus.NutritionTip != "" {
		day.NutritionTip = d.TodayFocus.NutritionTip
	}
	if d.Cycle.Phase.IsValid() {
		day.Phase = d.Cycle.Phase
	}
	day.AutoReplanned = slices.Contains(d.AppliedRules, synth.RuleStressDominance)
	return clamp.Day(day)
}

// PhaseReadiness is the baseline readiness of a cycle position before any
// stress or fatigue signal is known.
func PhaseReadiness(st cycle.State) plan.Readiness {
	switch st.Phase {
	case cycle.PhaseMenstrual:
		return plan.ReadinessGentle
	case cycle.PhaseFollicular, cycle.PhaseOvulatory:
		return plan.ReadinessPush
	case cycle.PhaseLuteal:
		if st.Day >= source.LateLutealDay {
			return plan.ReadinessGentle
		}
	}
	return plan.ReadinessMaintain
}

// FitWorkout scales a workout down to what readiness allows.
func FitWorkout(w plan.Workout, r plan.Readiness) plan.Workout {
	switch r {
	case plan.ReadinessMaintain:
		if w.Intensity == plan.IntensityHigh {
			w.Intensity = plan.IntensityModerate
		}
	case plan.ReadinessGentle:
		if plan.WorkoutTier(w.Type) == plan.HighestTier {
			w.Type = synth.LowestTierAlternative(w.Type)
			w.Title = WorkoutTitle(w.Type)
		}
		w.Intensity = plan.IntensityLow
	case plan.ReadinessRecover:
		if alt := synth.LowestTierAlternative(w.Type); alt != w.Type {
			w.Type = alt
			w.Title = WorkoutTitle(alt)
		}
		w.Intensity = plan.IntensityLow
		w.DurationMin = min(w.DurationMin, synth.StressDurationCapMin)
	}
	return w
}

var workoutTitles = map[string]string{
	plan.WorkoutRest:     "Rest day",
	plan.WorkoutMobility: "Mobility flow",
	plan.WorkoutYoga:     "Restorative yoga",
	plan.WorkoutWalk:     "Easy walk",
	plan.WorkoutPilates:  "Steady pilates",
	plan.WorkoutCycling:  "Endurance ride",
	plan.WorkoutStrength: "Strength building",
	plan.WorkoutRun:      "Tempo run",
	plan.WorkoutHIIT:     "Power intervals",
}

// WorkoutTitle returns a display title for a workout type.
func WorkoutTitle(workoutType string) string {
	if t, ok := workoutTitles[workoutType]; ok {
		return t
	}
	return "Workout"
}

// hardDay reports whether a day is a Push day that was not skipped.
func hardDay(d plan.DayPlan) bool {
	return d.Readiness == plan.ReadinessPush && d.Status != plan.StatusMissed
}

func calorieRange(p profile.Profile, phase cycle.Phase) plan.CalorieRange {
	target := float64(source.FallbackCalories)
	spread := source.FallbackCalorieSpread
	if tdee, ok := p.TDEE(); ok {
		target = float64(tdee)
		spread = source.CalorieSpread
	}
	if phase == cycle.PhaseLuteal {
		target *= source.LutealCalorieBump
	}
	kcal := int(math.Round(target))
	return plan.CalorieRange{Min: kcal - spread, Max: kcal + spread}
}
