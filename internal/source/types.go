package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/cadence/internal/cycle"
	"github.com/fyrsmithlabs/cadence/internal/profile"
)

// ID names a recommendation source.
type ID string

const (
	SourceCycle      ID = "cycle"
	SourceStress     ID = "stress"
	SourceFatigue    ID = "fatigue"
	SourceMetabolic  ID = "metabolic"
	SourcePsychology ID = "psychology"
	SourceWorkout    ID = "workout"
	SourceNutrition  ID = "nutrition"
)

// AllIDs lists every source in canonical order.
var AllIDs = []ID{
	SourceCycle, SourceStress, SourceFatigue, SourceMetabolic,
	SourcePsychology, SourceWorkout, SourceNutrition,
}

// MaxRecentLogs is the most logs any source receives.
const MaxRecentLogs = 3

// Errors wrapped by Unavailable results.
var (
	ErrSourceUnavailable = errors.New("recommendation source unavailable")
	ErrMalformedOutput   = errors.New("malformed recommendation source output")
)

// Reason classifies why a source was unavailable.
type Reason string

const (
	ReasonTimeout   Reason = "timeout"
	ReasonNetwork   Reason = "network"
	ReasonMalformed Reason = "malformed"
	ReasonPanic     Reason = "panic"
	ReasonDisabled  Reason = "disabled"
)

// Image is an optional photo attached for vision-capable nutrition sources.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// UserContext is the read-only input shared by every source in a pass.
type UserContext struct {
	UserID  string          `json:"user_id"`
	Date    string          `json:"date"`
	Profile profile.Profile `json:"profile"`
	Cycle   cycle.State     `json:"cycle"`
	Image   *Image          `json:"image,omitempty"`
}

// Log is one recent daily log handed to sources.
type Log = profile.DailyLog

// Recommendation is a source's structured, loosely typed payload.
type Recommendation map[string]any

// String returns the string at key, or "".
func (r Recommendation) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Enum returns the string at key trimmed and lower-cased, for values
// compared against the lower-case constants of this package.
func (r Recommendation) Enum(key string) string {
	return strings.ToLower(strings.TrimSpace(r.String(key)))
}

// Float returns the number at key.
func (r Recommendation) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the number at key truncated to an int. Values beyond the
// int32 range saturate and NaN reads as 0, so clamping still sees which
// side of its bounds a value fell on.
func (r Recommendation) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	switch {
	case !ok || math.IsNaN(f):
		return 0, ok
	case f >= math.MaxInt32:
		return math.MaxInt32, true
	case f <= math.MinInt32:
		return math.MinInt32, true
	}
	return int(f), true
}

// Opinion is one source's view of the day.
type Opinion struct {
	SourceID       ID                 `json:"source_id"`
	RiskScores     map[string]float64 `json:"risk_scores"`
	Recommendation Recommendation     `json:"recommendation"`
	Rationale      string             `json:"rationale"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Score returns the named risk score.
func (o Opinion) Score(key string) (float64, bool) {
	v, ok := o.RiskScores[key]
	return v, ok
}

// Result is either Ok (Opinion set) or Unavailable (Reason and Err set).
type Result struct {
	Source  ID
	Opinion *Opinion
	Reason  Reason
	Err     error
}

// Ok wraps a successful opinion.
func Ok(op Opinion) Result {
	return Result{Source: op.SourceID, Opinion: &op}
}

// Unavailable builds a failed result. err is wrapped with the sentinel that
// matches reason.
func Unavailable(id ID, reason Reason, err error) Result {
	sentinel := ErrSourceUnavailable
	if reason == ReasonMalformed {
		sentinel = ErrMalformedOutput
	}
	if err == nil {
		err = sentinel
	} else if !errors.Is(err, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return Result{Source: id, Reason: reason, Err: err}
}

// IsOk reports whether the result carries an opinion.
func (r Result) IsOk() bool {
	return r.Opinion != nil
}

// Provider is the uniform recommendation source interface.
type Provider interface {
	ID() ID
	Evaluate(ctx context.Context, uc UserContext, logs []Log) Result
}

// Evaluate calls p and enforces the Result contract: panics are recovered,
// context expiry maps to a timeout, and the result is stamped with p's ID.
func Evaluate(ctx context.Context, p Provider, uc UserContext, logs []Log) (res Result) {
	id := p.ID()
	defer func() {
		if r := recover(); r != nil {
			res = Unavailable(id, ReasonPanic, fmt.Errorf("provider panicked: %v", r))
		}
	}()

	if len(logs) > MaxRecentLogs {
		logs = logs[:MaxRecentLogs]
	}

	res = p.Evaluate(ctx, uc, logs)
	res.Source = id
	if res.IsOk() {
		if ctx.Err() != nil {
			return Unavailable(id, ReasonTimeout, ctx.Err())
		}
		res.Opinion.SourceID = id
		return res
	}
	if res.Err == nil && res.Reason == "" {
		return Unavailable(id, ReasonMalformed, errors.New("provider returned no opinion"))
	}
	if res.Reason == "" {
		res = Unavailable(id, classify(ctx, res.Err), res.Err)
	}
	return res
}

// classify maps an error to a Reason.
func classify(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(err, ErrMalformedOutput):
		return ReasonMalformed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return ReasonTimeout
	default:
		return ReasonNetwork
	}
}

// SortResults orders results by source ID so downstream processing does not
// depend on completion order. Duplicates for one source put Ok results first,
// then order by timestamp and rationale.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.IsOk() != b.IsOk() {
			return a.IsOk()
		}
		if !a.IsOk() {
			return a.Reason < b.Reason
		}
		if !a.Opinion.Timestamp.Equal(b.Opinion.Timestamp) {
			return a.Opinion.Timestamp.Before(b.Opinion.Timestamp)
		}
		return a.Opinion.Rationale < b.Opinion.Rationale
	})
}
