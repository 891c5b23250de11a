package source

import (
	"github.com/fyrsmithlabs/cadence/internal/plan"
)

// Fallback values substituted when a source is unavailable.
const (
	FallbackFuelRisk      = 0.5
	FallbackCarbNeed      = 0.5
	FallbackMotivation    = "stable"
	FallbackAdherenceRisk = 0.5
	FallbackTone          = plan.ToneSupportive
	FallbackStressState   = StressElevated
	FallbackStressLoad    = 0.5
	FallbackFatigue       = 0.5
	FallbackWorkoutType   = plan.WorkoutWalk
	FallbackWorkoutTitle  = "Easy walk"
	FallbackIntensity     = plan.IntensityLow
	FallbackDurationMin   = 30
	FallbackCalories      = 2000
	FallbackCalorieSpread = 200
	FallbackNutritionTip  = "Build each meal around protein and vegetables"
	FallbackProteinPct    = 0.3
	FallbackCarbsPct      = 0.4
	FallbackFatsPct       = 0.3
)

// Stress states reported by the stress source.
const (
	StressLow        = "low"
	StressModerate   = "moderate"
	StressElevated   = "elevated"
	StressCritical   = "critical"
	StressOverloaded = "overloaded"
)

// Risk score keys.
const (
	ScoreStressLoad    = "stress_load"
	ScoreFatigue       = "fatigue"
	ScoreFuelRisk      = "fuel_risk"
	ScoreCarbNeed      = "carb_need"
	ScoreAdherenceRisk = "adherence_risk"
	ScoreSymptomLoad   = "symptom_load"
)

// Recommendation payload keys.
const (
	KeyState           = "state"
	KeyLevel           = "level"
	KeyPhase           = "phase"
	KeyDay             = "day"
	KeyMotivationState = "motivation_state"
	KeyTone            = "tone"
	KeyWorkoutType     = "workout_type"
	KeyTitle           = "title"
	KeyIntensity       = "intensity"
	KeyDurationMin     = "duration_min"
	KeyPlanAction      = "plan_action"
	KeyTip             = "tip"
	KeyCalories        = "calories"
	KeyCalorieMin      = "calorie_min"
	KeyCalorieMax      = "calorie_max"
	KeyProteinPct      = "protein_pct"
	KeyCarbsPct        = "carbs_pct"
	KeyFatsPct         = "fats_pct"
)

// Fallback returns the documented default opinion for a source. The result
// is deterministic; Timestamp is left zero.
func Fallback(id ID) Opinion {
	op := Opinion{
		SourceID:       id,
		RiskScores:     map[string]float64{},
		Recommendation: Recommendation{},
		Rationale:      fallbackRationale(id),
	}

	switch id {
	case SourceStress:
		op.RiskScores[ScoreStressLoad] = FallbackStressLoad
		op.Recommendation[KeyState] = FallbackStressState
	case SourceFatigue:
		op.RiskScores[ScoreFatigue] = FallbackFatigue
	case SourceMetabolic:
		op.RiskScores[ScoreFuelRisk] = FallbackFuelRisk
		op.RiskScores[ScoreCarbNeed] = FallbackCarbNeed
	case SourcePsychology:
		op.RiskScores[ScoreAdherenceRisk] = FallbackAdherenceRisk
		op.Recommendation[KeyMotivationState] = FallbackMotivation
		op.Recommendation[KeyTone] = string(FallbackTone)
	case SourceWorkout:
		op.Recommendation[KeyWorkoutType] = FallbackWorkoutType
		op.Recommendation[KeyTitle] = FallbackWorkoutTitle
		op.Recommendation[KeyIntensity] = string(FallbackIntensity)
		op.Recommendation[KeyDurationMin] = float64(FallbackDurationMin)
		op.Recommendation[KeyPlanAction] = string(plan.PlanActionKeep)
	case SourceNutrition:
		op.Recommendation[KeyTip] = FallbackNutritionTip
		op.Recommendation[KeyCalories] = float64(FallbackCalories)
		op.Recommendation[KeyCalorieMin] = float64(FallbackCalories - FallbackCalorieSpread)
		op.Recommendation[KeyCalorieMax] = float64(FallbackCalories + FallbackCalorieSpread)
		op.Recommendation[KeyProteinPct] = FallbackProteinPct
		op.Recommendation[KeyCarbsPct] = FallbackCarbsPct
		op.Recommendation[KeyFatsPct] = FallbackFatsPct
	}
	return op
}

func fallbackRationale(id ID) string {
	return string(id) + " source unavailable; using conservative defaults"
}
