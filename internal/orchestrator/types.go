package orchestrator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
)

// Purpose names a consumer of the daily decision. Every purpose is served
// from the same computation.
type Purpose string

const (
	PurposeDashboard Purpose = "dashboard"
	PurposeNutrition Purpose = "nutrition"
	PurposeWorkout   Purpose = "workout"

	// purposeShared holds the computed decision every purpose aliases.
	purposeShared Purpose = "decision"
)

// Purposes lists the caller-facing purposes.
var Purposes = []Purpose{PurposeDashboard, PurposeNutrition, PurposeWorkout}

// IsValid reports whether p is a caller-facing purpose.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeDashboard, PurposeNutrition, PurposeWorkout:
		return true
	}
	return false
}

var (
	// ErrPersistence is returned alongside a valid decision when the plan
	// it implies could not be saved.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidPurpose is returned for unknown cache purposes.
	ErrInvalidPurpose = errors.New("invalid decision purpose")

	// ErrEmptyUserID is returned when no user is given.
	ErrEmptyUserID = errors.New("user_id is required")
)

// Profiles is the profile and log store decisions are built from.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
	SaveProfile(ctx context.Context, p profile.Profile) error
	RecordLog(ctx context.Context, l profile.DailyLog) error
	RecentLogs(ctx context.Context, userID, asOf string, limit int) ([]profile.DailyLog, error)
}

// Scheduler is the schedule state store.
type Scheduler interface {
	GetOrCreateCurrentPlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error)
	Merge(ctx context.Context, userID string, preview []plan.DayPlan) (*plan.WeeklyPlan, error)
	MarkComplete(ctx context.Context, userID, date string, fb plan.Feedback) (*plan.WeeklyPlan, error)
	MarkMissed(ctx context.Context, userID, date string) (*plan.WeeklyPlan, error)
	EditDay(ctx context.Context, userID, date string, upd plan.DayUpdate) (*plan.WeeklyPlan, error)
	Regenerate(ctx context.Context, userID string, d *plan.Decision) (*plan.WeeklyPlan, error)
}
