package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/cadence/internal/sanitize"
)

// Event types.
const (
	PlanGenerated = "plan.generated"
	PlanMerged    = "plan.merged"
	PlanReplanned = "plan.replanned"
	DayCompleted  = "day.completed"
	DayMissed     = "day.missed"
	DayEdited     = "day.edited"
)

// DefaultSubjectPrefix is the first subject token when none is configured.
const DefaultSubjectPrefix = "cadence"

// Event describes one schedule mutation.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id,omitempty"`
	Dates      []string  `json:"dates,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event with a fresh id.
func New(eventType, userID, planID string, dates ...string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		PlanID:     planID,
		Dates:      dates,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends events. Implementations must not block the caller on
// delivery failures.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Subject returns the subject an event is published on.
func Subject(prefix string, e Event) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + sanitize.Token(e.UserID) + "." + e.Type
}

// Recorder keeps published events in memory. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every published event in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
