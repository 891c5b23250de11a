// Package schedule owns the weekly plan and the lifecycle of its days.
//
// A WeeklyPlan covers a contiguous date range and never overlaps another
// active plan of the same user. Days move through
//
//	planned -> completed | missed | rescheduled
//	missed  -> rescheduled
//	any     -> rescheduled (explicit edit of workout or readiness)
//
// Completed and missed days are history: merges and replans keep them
// untouched. Marking day N missed regenerates the open days from N+1 on,
// carrying the missed session forward when the next day can absorb it.
//
// All mutations for one user are serialized by a per-user lock. Reads of
// other users never wait on each other.
package schedule
