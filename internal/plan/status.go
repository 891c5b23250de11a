package plan

// Status is the lifecycle state of a DayPlan.
type Status string

const (
	StatusPlanned     Status = "planned"
	StatusCompleted   Status = "completed"
	StatusMissed      Status = "missed"
	StatusRescheduled Status = "rescheduled"
)

// ValidTransitions defines allowed DayPlan status transitions. Every state
// may move to rescheduled through an explicit edit.
var ValidTransitions = map[Status][]Status{
	StatusPlanned:     {StatusCompleted, StatusMissed, StatusRescheduled},
	StatusRescheduled: {StatusCompleted, StatusMissed, StatusRescheduled},
	StatusMissed:      {StatusRescheduled},
	StatusCompleted:   {StatusRescheduled},
}

// CanTransitionTo checks if a transition from current status to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsOpen returns true if the day still expects the user to act on it.
func (s Status) IsOpen() bool {
	return s == StatusPlanned || s == StatusRescheduled
}

// IsHistory returns true for outcomes that replanning and merging must keep.
func (s Status) IsHistory() bool {
	return s == StatusCompleted || s == StatusMissed
}
