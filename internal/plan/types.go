package plan

import (
	"time"

	"github.com/fyrsmithlabs/cadence/internal/cycle"
)

// DateLayout is the canonical calendar-date encoding used for plan dates and
// cache date keys.
const DateLayout = "2006-01-02"

// DateKey formats t as a calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// AddDays shifts a date key by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date, time.UTC)
	if err != nil {
		return "", err
	}
	return DateKey(t.AddDate(0, 0, n)), nil
}

// Readiness describes how hard a day should be.
type Readiness string

const (
	ReadinessPush     Readiness = "Push"
	ReadinessMaintain Readiness = "Maintain"
	ReadinessGentle   Readiness = "Gentle"
	ReadinessRecover  Readiness = "Recover"
)

// IsValid reports whether r is a known readiness level.
func (r Readiness) IsValid() bool {
	switch r {
	case ReadinessPush, ReadinessMaintain, ReadinessGentle, ReadinessRecover:
		return true
	}
	return false
}

// Intensity is the workout intensity tier.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

// Tier returns the ordinal of the intensity (0 is lowest). Unknown values
// rank as moderate.
func (i Intensity) Tier() int {
	switch i {
	case IntensityLow:
		return 0
	case IntensityHigh:
		return 2
	default:
		return 1
	}
}

// Workout types, grouped by tier.
const (
	WorkoutRest     = "rest"
	WorkoutMobility = "mobility"
	WorkoutYoga     = "yoga"
	WorkoutWalk     = "walk"
	WorkoutPilates  = "pilates"
	WorkoutCycling  = "cycling"
	WorkoutStrength = "strength"
	WorkoutRun      = "run"
	WorkoutHIIT     = "hiit"
)

var workoutTiers = map[string]int{
	WorkoutRest:     0,
	WorkoutMobility: 0,
	WorkoutYoga:     0,
	WorkoutWalk:     0,
	WorkoutPilates:  1,
	WorkoutCycling:  1,
	WorkoutStrength: 1,
	WorkoutRun:      2,
	WorkoutHIIT:     2,
}

// HighestTier is the tier index of the most demanding workouts.
const HighestTier = 2

// WorkoutTier returns the demand tier of a workout type. Unknown types rank
// as the middle tier.
func WorkoutTier(workoutType string) int {
	if tier, ok := workoutTiers[workoutType]; ok {
		return tier
	}
	return 1
}

// Workout is a single planned session.
type Workout struct {
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Intensity   Intensity `json:"intensity"`
	Notes       string    `json:"notes,omitempty"`
}

// CalorieRange is a two-sided daily energy target in kcal.
type CalorieRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// MacroTargets are macro fractions of total energy.
type MacroTargets struct {
	ProteinPct float64 `json:"protein_pct"`
	CarbsPct   float64 `json:"carbs_pct"`
	FatsPct    float64 `json:"fats_pct"`
}

// Sum returns the total of all macro fractions.
func (m MacroTargets) Sum() float64 {
	return m.ProteinPct + m.CarbsPct + m.FatsPct
}

// Feedback is what a user reports when completing a workout.
type Feedback struct {
	Rating int    `json:"rating,omitempty"`
	Energy int    `json:"energy,omitempty"`
	Note   string `json:"note,omitempty"`
}

// DayPlan is one day of a WeeklyPlan.
type DayPlan struct {
	Date          string       `json:"date"`
	Phase         cycle.Phase  `json:"phase"`
	Readiness     Readiness    `json:"readiness"`
	Workout       Workout      `json:"workout"`
	CalorieTarget CalorieRange `json:"calorie_target"`
	MacroTargets  MacroTargets `json:"macro_targets"`
	NutritionTip  string       `json:"nutrition_tip,omitempty"`
	Status        Status       `json:"status"`
	AutoReplanned bool         `json:"auto_replanned"`
	Feedback      *Feedback    `json:"feedback,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// PlanStatus is the lifecycle of a whole WeeklyPlan document.
type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanArchived PlanStatus = "archived"
)

// WeeklyPlan is the persisted schedule for a contiguous date range.
type WeeklyPlan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	WeekStart string     `json:"week_start"`
	WeekEnd   string     `json:"week_end"`
	Status    PlanStatus `json:"status"`
	Days      []DayPlan  `json:"days"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Covers reports whether date falls inside the plan's range.
func (p *WeeklyPlan) Covers(date string) bool {
	return date >= p.WeekStart && date <= p.WeekEnd
}

// Overlaps reports whether the plan's range intersects [start, end].
func (p *WeeklyPlan) Overlaps(start, end string) bool {
	return p.WeekStart <= end && start <= p.WeekEnd
}

// Day returns the index of the DayPlan for date, or -1.
func (p *WeeklyPlan) Day(date string) int {
	for i := range p.Days {
		if p.Days[i].Date == date {
			return i
		}
	}
	return -1
}

// DayUpdate is a partial edit of a DayPlan. Nil fields are left unchanged.
type DayUpdate struct {
	Readiness     *Readiness    `json:"readiness,omitempty"`
	Workout       *Workout      `json:"workout,omitempty"`
	CalorieTarget *CalorieRange `json:"calorie_target,omitempty"`
	MacroTargets  *MacroTargets `json:"macro_targets,omitempty"`
	NutritionTip  *string       `json:"nutrition_tip,omitempty"`
}

// ChangesSchedule reports whether the update touches workout or readiness.
func (u DayUpdate) ChangesSchedule() bool {
	return u.Workout != nil || u.Readiness != nil
}

// IsEmpty reports whether the update changes nothing.
func (u DayUpdate) IsEmpty() bool {
	return u.Readiness == nil && u.Workout == nil && u.CalorieTarget == nil &&
		u.MacroTargets == nil && u.NutritionTip == nil
}
