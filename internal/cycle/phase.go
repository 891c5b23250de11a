package cycle

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Phase is one of the four biological cycle stages.
type Phase string

const (
	PhaseMenstrual  Phase = "menstrual"
	PhaseFollicular Phase = "follicular"
	PhaseOvulatory  Phase = "ovulatory"
	PhaseLuteal     Phase = "luteal"
)

// Day thresholds for phase boundaries (inclusive upper bounds).
const (
	MenstrualLastDay  = 5
	FollicularLastDay = 13
	OvulatoryLastDay  = 17
)

// MinCycleLength is the shortest cycle the calculator accepts.
const MinCycleLength = 21

// ErrCycleLengthTooShort is returned when cycleLength < MinCycleLength.
var ErrCycleLengthTooShort = errors.New("cycle length below minimum")

// Phases lists all phases in cycle order.
var Phases = []Phase{PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal}

// IsValid reports whether p is a known phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal:
		return true
	}
	return false
}

// State is the derived cycle position for a given day.
type State struct {
	Day      int   `json:"day"`
	Length   int   `json:"length"`
	Phase    Phase `json:"phase"`
	Progress int   `json:"progress"`
}

// PhaseForDay maps a 1-indexed cycle day to its phase.
func PhaseForDay(day int) Phase {
	switch {
	case day <= MenstrualLastDay:
		return PhaseMenstrual
	case day <= FollicularLastDay:
		return PhaseFollicular
	case day <= OvulatoryLastDay:
		return PhaseOvulatory
	default:
		return PhaseLuteal
	}
}

// Compute returns the cycle state of asOf given the start of the last period.
//
// Dates are compared by calendar day in asOf's location, so the time of day
// never shifts the result. An asOf before lastPeriodStart wraps backwards
// into the previous cycle.
func Compute(lastPeriodStart time.Time, cycleLength int, asOf time.Time) (State, error) {
	if cycleLength < MinCycleLength {
		return State{}, fmt.Errorf("%w: %d < %d", ErrCycleLengthTooShort, cycleLength, MinCycleLength)
	}

	dayDiff := DaysBetween(lastPeriodStart, asOf) + 1
	day := mod(dayDiff-1, cycleLength) + 1

	return State{
		Day:      day,
		Length:   cycleLength,
		Phase:    PhaseForDay(day),
		Progress: int(math.Round(float64(day) / float64(cycleLength) * 100)),
	}, nil
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	// Noon UTC avoids DST edges when counting days.
	start := time.Date(ay, am, ad, 12, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 12, 0, 0, 0, time.UTC)
	return int(math.Floor(end.Sub(start).Hours() / 24))
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
