// Package orchestrator produces the daily Decision and exposes the planning
// operations.
//
// A decision request first checks the shared cache. On a miss the
// Executor fans out to every recommendation source in parallel under one
// overall timeout. Sources that have not answered when it fires are marked
// unavailable and their late results are discarded. The synthesizer then
// reconciles whatever arrived, the clamp bounds every number, and the
// result is cached. When the decision asks for a new plan its week preview
// is merged into the schedule.
//
// Concurrent requests for the same user and day join one computation, and
// every cache purpose (dashboard, nutrition, workout) shares it.
//
// A failure to persist the merged plan does not hide the decision: the
// decision is returned together with an error wrapping ErrPersistence.
package orchestrator
