package plan

import "github.com/fyrsmithlabs/cadence/internal/cycle"

// PlanAction tells the schedule whether the decision replaces upcoming days.
type PlanAction string

const (
	PlanActionKeep        PlanAction = "keep"
	PlanActionGenerateNew PlanAction = "generateNew"
)

// Tone is the coaching register used for rationale strings.
type Tone string

const (
	ToneSupportive  Tone = "supportive"
	ToneDirective   Tone = "directive"
	ToneEducational Tone = "educational"
)

// Summary sections, in user-facing order.
const (
	SectionWorkout   = "workout"
	SectionNutrition = "nutrition"
)

// Metabolic is the fuel assessment for the day.
type Metabolic struct {
	FuelRisk  float64 `json:"fuel_risk"`
	CarbNeed  float64 `json:"carb_need"`
	Rationale string  `json:"rationale"`
}

// Psychology is the motivation assessment for the day.
type Psychology struct {
	MotivationState string  `json:"motivation_state"`
	AdherenceRisk   float64 `json:"adherence_risk"`
	Tone            Tone    `json:"tone"`
	Rationale       string  `json:"rationale"`
}

// Stress is the stress assessment for the day.
type Stress struct {
	State     string  `json:"state"`
	Load      float64 `json:"load"`
	Rationale string  `json:"rationale"`
}

// TodayFocus is the headline recommendation for the day.
type TodayFocus struct {
	WorkoutType  string    `json:"workout_type"`
	Intensity    Intensity `json:"intensity"`
	DurationMin  int       `json:"duration_min"`
	NutritionTip string    `json:"nutrition_tip"`
	Calories     int       `json:"calories"`
	Rationale    string    `json:"rationale"`
}

// Decision is the single synthesized, clamped output for one user and day.
type Decision struct {
	UserID             string       `json:"user_id,omitempty"`
	Date               string       `json:"date,omitempty"`
	Cycle              cycle.State  `json:"cycle"`
	Readiness          Readiness    `json:"readiness"`
	Metabolic          Metabolic    `json:"metabolic"`
	Psychology         Psychology   `json:"psychology"`
	Stress             Stress       `json:"stress"`
	FatigueRisk        float64      `json:"fatigue_risk"`
	PlanAction         PlanAction   `json:"plan_action"`
	TodayFocus         TodayFocus   `json:"today_focus"`
	MacroTargets       MacroTargets `json:"macro_targets"`
	WeekPreview        []DayPlan    `json:"week_preview,omitempty"`
	SummaryOrder       []string     `json:"summary_order"`
	AppliedRules       []string     `json:"applied_rules"`
	UnavailableSources []string     `json:"unavailable_sources,omitempty"`
	Degraded           bool         `json:"degraded"`
}
