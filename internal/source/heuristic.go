package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fyrsmithlabs/cadence/internal/cycle"
	"github.com/fyrsmithlabs/cadence/internal/plan"
)

// Heuristic thresholds.
const (
	CriticalStressLoad = 0.85
	ElevatedStressLoad = 0.6
	ModerateStressLoad = 0.3

	TargetSleepHours = 8.0
	ShortSleepHours  = 6.0

	// Luteal-phase energy needs run slightly higher.
	LutealCalorieBump = 1.05
	CalorieSpread     = 100

	// LateLutealDay is where the workout template eases off before menstruation.
	LateLutealDay = 24
)

// Heuristics returns in-process providers for every source ID.
func Heuristics() []Provider {
	return []Provider{
		CycleProvider{},
		StressProvider{},
		FatigueProvider{},
		MetabolicProvider{},
		PsychologyProvider{},
		WorkoutProvider{},
		NutritionProvider{},
	}
}

// CycleProvider reports phase-related symptoms and energy expectations.
type CycleProvider struct{}

func (CycleProvider) ID() ID { return SourceCycle }

func (CycleProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	symptoms := 0
	for _, l := range logs {
		symptoms += len(l.Symptoms)
	}
	load := math.Min(1, float64(symptoms)/6)

	expectation := map[cycle.Phase]string{
		cycle.PhaseMenstrual:  "low",
		cycle.PhaseFollicular: "rising",
		cycle.PhaseOvulatory:  "peak",
		cycle.PhaseLuteal:     "declining",
	}[uc.Cycle.Phase]

	return Ok(Opinion{
		SourceID:   SourceCycle,
		RiskScores: map[string]float64{ScoreSymptomLoad: load},
		Recommendation: Recommendation{
			KeyPhase:      string(uc.Cycle.Phase),
			KeyDay:        float64(uc.Cycle.Day),
			"energy":      expectation,
			"progress":    float64(uc.Cycle.Progress),
			"symptom_cnt": float64(symptoms),
		},
		Rationale: fmt.Sprintf("Day %d of %d, %s phase; energy typically %s", uc.Cycle.Day, uc.Cycle.Length, uc.Cycle.Phase, expectation),
		Timestamp: stamp(uc),
	})
}

// StressProvider derives stress load from reported stress and sleep.
type StressProvider struct{}

func (StressProvider) ID() ID { return SourceStress }

func (StressProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	avgStress, ok := average(logs, func(l Log) float64 { return float64(l.Stress) })
	if !ok {
		return Ok(Opinion{
			SourceID:       SourceStress,
			RiskScores:     map[string]float64{ScoreStressLoad: ModerateStressLoad},
			Recommendation: Recommendation{KeyState: StressModerate},
			Rationale:      "No recent stress reports",
			Timestamp:      stamp(uc),
		})
	}

	load := (avgStress - 1) / 4
	if sleep, ok := average(logs, func(l Log) float64 { return l.SleepHours }); ok && sleep < ShortSleepHours {
		load += 0.15
	}
	load = math.Min(1, math.Max(0, load))

	state := StressLow
	switch {
	case load >= CriticalStressLoad:
		state = StressCritical
	case load >= ElevatedStressLoad:
		state = StressElevated
	case load >= ModerateStressLoad:
		state = StressModerate
	}

	return Ok(Opinion{
		SourceID:       SourceStress,
		RiskScores:     map[string]float64{ScoreStressLoad: load},
		Recommendation: Recommendation{KeyState: state},
		Rationale:      fmt.Sprintf("Average reported stress %.1f/5 over %d days", avgStress, len(logs)),
		Timestamp:      stamp(uc),
	})
}

// FatigueProvider derives fatigue from sleep, energy and symptoms.
type FatigueProvider struct{}

func (FatigueProvider) ID() ID { return SourceFatigue }

func (FatigueProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	fatigue := 0.3
	if sleep, ok := average(logs, func(l Log) float64 { return l.SleepHours }); ok {
		fatigue = math.Max(0, (TargetSleepHours-sleep)/4)
	}
	if energy, ok := average(logs, func(l Log) float64 { return float64(l.Energy) }); ok {
		fatigue += (3 - energy) * 0.1
	}
	for _, l := range logs {
		for _, s := range l.Symptoms {
			if s == "fatigue" || s == "cramps" || s == "headache" {
				fatigue += 0.1
			}
		}
	}
	if uc.Cycle.Phase == cycle.PhaseMenstrual {
		fatigue += 0.1
	}
	fatigue = math.Min(1, math.Max(0, fatigue))

	level := "low"
	switch {
	case fatigue >= 0.7:
		level = "high"
	case fatigue >= 0.4:
		level = "moderate"
	}

	return Ok(Opinion{
		SourceID:       SourceFatigue,
		RiskScores:     map[string]float64{ScoreFatigue: fatigue},
		Recommendation: Recommendation{KeyLevel: level},
		Rationale:      fmt.Sprintf("Fatigue looks %s from recent sleep and energy", level),
		Timestamp:      stamp(uc),
	})
}

// MetabolicProvider compares logged intake with estimated energy expenditure.
type MetabolicProvider struct{}

func (MetabolicProvider) ID() ID { return SourceMetabolic }

func (MetabolicProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	carbNeed := map[cycle.Phase]float64{
		cycle.PhaseMenstrual:  0.55,
		cycle.PhaseFollicular: 0.5,
		cycle.PhaseOvulatory:  0.6,
		cycle.PhaseLuteal:     0.65,
	}[uc.Cycle.Phase]

	fuelRisk := 0.3
	rationale := "No intake logged; assuming adequate fueling"
	tdee, haveTDEE := uc.Profile.TDEE()
	intake, haveIntake := average(logs, func(l Log) float64 { return float64(l.CaloriesIn) })
	if haveTDEE && haveIntake {
		deficit := (float64(tdee) - intake) / float64(tdee)
		fuelRisk = math.Min(1, math.Max(0, deficit*2))
		rationale = fmt.Sprintf("Intake averages %.0f kcal against an estimated %d kcal need", intake, tdee)
	}

	return Ok(Opinion{
		SourceID:       SourceMetabolic,
		RiskScores:     map[string]float64{ScoreFuelRisk: fuelRisk, ScoreCarbNeed: carbNeed},
		Recommendation: Recommendation{},
		Rationale:      rationale,
		Timestamp:      stamp(uc),
	})
}

// PsychologyProvider reads mood and adherence to pick motivation and tone.
type PsychologyProvider struct{}

func (PsychologyProvider) ID() ID { return SourcePsychology }

func (PsychologyProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	motivation := "stable"
	mood, haveMood := average(logs, func(l Log) float64 { return float64(l.Mood) })
	if haveMood {
		switch {
		case mood >= 4:
			motivation = "high"
		case mood < 2.5:
			motivation = "low"
		}
	}

	adherence := 0.4
	if len(logs) > 0 {
		done := 0
		for _, l := range logs {
			if l.WorkoutCompleted {
				done++
			}
		}
		adherence = 1 - float64(done)/float64(len(logs))
	}

	tone := plan.ToneEducational
	switch {
	case motivation == "low":
		tone = plan.ToneSupportive
	case adherence >= 0.6:
		tone = plan.ToneDirective
	}

	return Ok(Opinion{
		SourceID:   SourcePsychology,
		RiskScores: map[string]float64{ScoreAdherenceRisk: adherence},
		Recommendation: Recommendation{
			KeyMotivationState: motivation,
			KeyTone:            string(tone),
		},
		Rationale: fmt.Sprintf("Motivation %s with %.0f%% of recent sessions skipped", motivation, adherence*100),
		Timestamp: stamp(uc),
	})
}

// WorkoutProvider suggests a phase-based session.
type WorkoutProvider struct{}

func (WorkoutProvider) ID() ID { return SourceWorkout }

func (WorkoutProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	w := PhaseWorkout(uc.Cycle)

	action := plan.PlanActionKeep
	if isPhaseStart(uc.Cycle.Day) {
		action = plan.PlanActionGenerateNew
	}

	return Ok(Opinion{
		SourceID:   SourceWorkout,
		RiskScores: map[string]float64{},
		Recommendation: Recommendation{
			KeyWorkoutType: w.Type,
			KeyTitle:       w.Title,
			KeyIntensity:   string(w.Intensity),
			KeyDurationMin: float64(w.DurationMin),
			KeyPlanAction:  string(action),
		},
		Rationale: fmt.Sprintf("%s suits the %s phase", w.Title, uc.Cycle.Phase),
		Timestamp: stamp(uc),
	})
}

// PhaseWorkout returns the template session for a cycle position.
func PhaseWorkout(s cycle.State) plan.Workout {
	switch s.Phase {
	case cycle.PhaseMenstrual:
		return plan.Workout{Title: "Restorative yoga", Type: plan.WorkoutYoga, DurationMin: 30, Intensity: plan.IntensityLow}
	case cycle.PhaseFollicular:
		return plan.Workout{Title: "Strength building", Type: plan.WorkoutStrength, DurationMin: 45, Intensity: plan.IntensityModerate}
	case cycle.PhaseOvulatory:
		return plan.Workout{Title: "Power intervals", Type: plan.WorkoutHIIT, DurationMin: 35, Intensity: plan.IntensityHigh}
	default:
		if s.Day >= LateLutealDay {
			return plan.Workout{Title: "Easy walk", Type: plan.WorkoutWalk, DurationMin: 40, Intensity: plan.IntensityLow}
		}
		return plan.Workout{Title: "Steady pilates", Type: plan.WorkoutPilates, DurationMin: 40, Intensity: plan.IntensityModerate}
	}
}

func isPhaseStart(day int) bool {
	return day == 1 || day == cycle.MenstrualLastDay+1 ||
		day == cycle.FollicularLastDay+1 || day == cycle.OvulatoryLastDay+1
}

// NutritionProvider sets calorie and macro targets from TDEE and phase.
type NutritionProvider struct{}

func (NutritionProvider) ID() ID { return SourceNutrition }

func (NutritionProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	target := float64(FallbackCalories)
	if tdee, ok := uc.Profile.TDEE(); ok {
		target = float64(tdee)
	}
	if uc.Cycle.Phase == cycle.PhaseLuteal {
		target *= LutealCalorieBump
	}
	calories := int(math.Round(target))
	m := PhaseMacros(uc.Cycle.Phase)

	return Ok(Opinion{
		SourceID:   SourceNutrition,
		RiskScores: map[string]float64{},
		Recommendation: Recommendation{
			KeyTip:        PhaseTip(uc.Cycle.Phase),
			KeyCalories:   float64(calories),
			KeyCalorieMin: float64(calories - CalorieSpread),
			KeyCalorieMax: float64(calories + CalorieSpread),
			KeyProteinPct: m.ProteinPct,
			KeyCarbsPct:   m.CarbsPct,
			KeyFatsPct:    m.FatsPct,
		},
		Rationale: fmt.Sprintf("About %d kcal for the %s phase", calories, uc.Cycle.Phase),
		Timestamp: stamp(uc),
	})
}

// PhaseMacros returns macro fractions for a phase.
func PhaseMacros(p cycle.Phase) plan.MacroTargets {
	switch p {
	case cycle.PhaseMenstrual:
		return plan.MacroTargets{ProteinPct: 0.25, CarbsPct: 0.45, FatsPct: 0.3}
	case cycle.PhaseLuteal:
		return plan.MacroTargets{ProteinPct: 0.3, CarbsPct: 0.4, FatsPct: 0.3}
	default:
		return plan.MacroTargets{ProteinPct: 0.3, CarbsPct: 0.45, FatsPct: 0.25}
	}
}

// PhaseTip returns the nutrition tip for a phase.
func PhaseTip(p cycle.Phase) string {
	switch p {
	case cycle.PhaseMenstrual:
		return "Add iron-rich foods like lentils and spinach"
	case cycle.PhaseFollicular:
		return "Fuel training with complex carbs"
	case cycle.PhaseOvulatory:
		return "Prioritise protein and hydration around sessions"
	case cycle.PhaseLuteal:
		return "Add complex carbs and magnesium-rich foods to steady cravings"
	default:
		return FallbackNutritionTip
	}
}

// average returns the mean of the non-zero values of f over logs.
func average(logs []Log, f func(Log) float64) (float64, bool) {
	var sum float64
	n := 0
	for _, l := range logs {
		if v := f(l); v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// stamp derives a deterministic timestamp from the context date.
func stamp(uc UserContext) time.Time {
	t, err := time.Parse(plan.DateLayout, uc.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}
