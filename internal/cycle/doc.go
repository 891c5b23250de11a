// Package cycle derives a menstrual cycle state from raw dates.
//
// The calculation is pure: the same (lastPeriodStart, cycleLength, asOf)
// triple always yields the same State. Nothing here is persisted; callers
// recompute the state whenever they need it.
//
// Phase thresholds are fixed by cycle day:
//
//	day 1-5    menstrual
//	day 6-13   follicular
//	day 14-17  ovulatory
//	day 18+    luteal
//
// Cycle length must be at least MinCycleLength. Callers are responsible for
// supplying a configured default (see config.PlanningConfig) when a user has
// not set one.
package cycle
