package profile

import (
	"errors"
	"math"
	"time"
)

// Errors returned by the repository.
var (
	ErrEmptyUserID     = errors.New("user_id is required")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
)

// ActivityMultipliers maps activity levels to their TDEE multiplier.
var ActivityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// DefaultActivityFactor is used when a profile carries no usable activity data.
const DefaultActivityFactor = 1.375

// Profile is the physiological context shared with every recommendation source.
type Profile struct {
	UserID          string    `json:"user_id"`
	Age             int       `json:"age"`
	WeightKg        float64   `json:"weight_kg"`
	HeightCm        float64   `json:"height_cm"`
	ActivityLevel   string    `json:"activity_level,omitempty"`
	ActivityFactor  float64   `json:"activity_factor,omitempty"`
	LastPeriodStart string    `json:"last_period_start,omitempty"`
	CycleLength     int       `json:"cycle_length,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Factor resolves the activity multiplier, preferring an explicit factor.
func (p Profile) Factor() float64 {
	if p.ActivityFactor >= 1 && p.ActivityFactor <= 2.5 {
		return p.ActivityFactor
	}
	if m, ok := ActivityMultipliers[p.ActivityLevel]; ok {
		return m
	}
	return DefaultActivityFactor
}

// Location returns the profile's time zone, falling back to UTC.
func (p Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BMR computes basal metabolic rate with the Mifflin-St Jeor equation
// (female constant). ok is false when required fields are missing or
// implausible.
func (p Profile) BMR() (bmr float64, ok bool) {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.Age <= 0 || p.Age > 130 {
		return 0, false
	}
	return 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age) - 161, true
}

// TDEE is BMR multiplied by the activity factor, rounded to whole kcal.
func (p Profile) TDEE() (int, bool) {
	bmr, ok := p.BMR()
	if !ok {
		return 0, false
	}
	return int(math.Round(bmr * p.Factor())), true
}

// DailyLog is one day of user-reported signals. Scales are 1 (low) to 5 (high);
// zero means not reported.
type DailyLog struct {
	UserID           string    `json:"user_id"`
	Date             string    `json:"date"`
	SleepHours       float64   `json:"sleep_hours,omitempty"`
	SleepQuality     int       `json:"sleep_quality,omitempty"`
	Stress           int       `json:"stress,omitempty"`
	Mood             int       `json:"mood,omitempty"`
	Energy           int       `json:"energy,omitempty"`
	Symptoms         []string  `json:"symptoms,omitempty"`
	CaloriesIn       int       `json:"calories_in,omitempty"`
	WorkoutCompleted bool      `json:"workout_completed,omitempty"`
	WorkoutType      string    `json:"workout_type,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
