package schedule

import "errors"

var (
	// ErrScheduleConflict is returned when a plan range would overlap
	// another active plan of the same user.
	ErrScheduleConflict = errors.New("schedule conflict: overlapping weekly plans")

	// ErrInvalidTransition is returned when a day cannot move to the
	// requested status.
	ErrInvalidTransition = errors.New("invalid day status transition")

	// ErrDayNotFound is returned when the plan has no day for a date.
	ErrDayNotFound = errors.New("day not found in plan")

	// ErrPlanNotFound is returned when no active plan covers a date.
	ErrPlanNotFound = errors.New("no active plan covers date")

	// ErrPersistence wraps document store failures.
	ErrPersistence = errors.New("schedule persistence failed")
)

// Validation errors.
var (
	ErrEmptyUserID   = errors.New("user_id is required")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrEmptyUpdate   = errors.New("update changes nothing")
	ErrInvalidUpdate = errors.New("invalid day update")
	ErrFutureDay     = errors.New("day has not happened yet")
)
