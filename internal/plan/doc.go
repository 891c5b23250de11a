// Package plan holds the data model shared by the planning engine: the
// synthesized daily Decision, the persisted WeeklyPlan and its DayPlans, and
// the per-day status state machine.
package plan
