package http

import "github.com/fyrsmithlabs/cadence/internal/plan"

// HealthResponse is the response body for GET /health. Components maps
// each registered dependency to its reported state.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// PlanResponse wraps a weekly plan.
type PlanResponse struct {
	Plan *plan.WeeklyPlan `json:"plan"`
}

// DegradedHeader names the side effect that failed while the decision
// itself was still served.
const DegradedHeader = "X-Cadence-Degraded"

// Values of DegradedHeader.
const (
	DegradedPersistence = "persistence"
	DegradedConflict    = "conflict"
)
