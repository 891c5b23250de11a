package synth

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/source"
)

// Field is a decision field that rules compete for.
type Field string

const (
	FieldWorkout   Field = "workout"
	FieldSummary   Field = "summary_order"
	FieldRationale Field = "rationale"
)

// FuelDominanceThreshold is the fuel risk at which nutrition leads the summary.
const FuelDominanceThreshold = 0.7

// Rule names.
const (
	RuleStressDominance = "stress-dominance"
	RuleFuelDominance   = "fuel-dominance"
	RuleToneFilter      = "tone-filter"
	RuleDefault         = "default"
)

// Rule is one named conflict-resolution step.
type Rule interface {
	// Name returns the rule identifier recorded in Decision.AppliedRules.
	Name() string

	// Fields lists the decision fields the rule writes.
	Fields() []Field

	// Applies reports whether the rule's condition holds.
	Applies(d *Draft) bool

	// Apply writes the rule's effect to the open fields.
	Apply(d *Draft, open map[Field]bool)
}

// DefaultRules returns the rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		StressDominance{},
		FuelDominance{},
		ToneFilter{},
		Default{},
	}
}

// StressDominance downgrades the workout when stress is critical.
type StressDominance struct{}

func (StressDominance) Name() string    { return RuleStressDominance }
func (StressDominance) Fields() []Field { return []Field{FieldWorkout} }

func (StressDominance) Applies(d *Draft) bool {
	return IsCriticalStress(d.Opinion(source.SourceStress))
}

func (StressDominance) Apply(d *Draft, open map[Field]bool) {
	suggested := d.SuggestedWorkout()
	gentle := LowestTierAlternative(suggested.Type)

	d.Decision.TodayFocus.WorkoutType = gentle
	d.Decision.TodayFocus.Intensity = plan.IntensityLow
	d.Decision.TodayFocus.DurationMin = min(suggested.DurationMin, StressDurationCapMin)
	d.Decision.TodayFocus.Rationale = fmt.Sprintf("Stress is very high, so %s becomes a gentle %s session",
		strings.ToLower(suggested.Title), gentle)
	d.Decision.Readiness = plan.ReadinessRecover
	d.Decision.PlanAction = plan.PlanActionGenerateNew
}

// StressDurationCapMin caps session length under stress dominance.
const StressDurationCapMin = 30

// IsCriticalStress reports whether a stress opinion demands dominance. The
// reported state and the load score are both checked.
func IsCriticalStress(op source.Opinion) bool {
	switch op.Recommendation.Enum(source.KeyState) {
	case source.StressCritical, source.StressOverloaded:
		return true
	}
	load, ok := op.Score(source.ScoreStressLoad)
	return ok && clamp.Score(load) >= source.CriticalStressLoad
}

// LowestTierAlternative maps a workout type to a lowest-tier equivalent.
func LowestTierAlternative(workoutType string) string {
	if plan.WorkoutTier(workoutType) == 0 {
		return workoutType
	}
	switch workoutType {
	case plan.WorkoutHIIT, plan.WorkoutRun, plan.WorkoutCycling:
		return plan.WorkoutWalk
	case plan.WorkoutStrength:
		return plan.WorkoutMobility
	default:
		return plan.WorkoutYoga
	}
}

// FuelDominance puts nutrition first when fuel risk is high.
type FuelDominance struct{}

func (FuelDominance) Name() string    { return RuleFuelDominance }
func (FuelDominance) Fields() []Field { return []Field{FieldSummary} }

func (FuelDominance) Applies(d *Draft) bool {
	return d.Decision.Metabolic.FuelRisk >= FuelDominanceThreshold
}

func (FuelDominance) Apply(d *Draft, open map[Field]bool) {
	d.Decision.SummaryOrder = []string{plan.SectionNutrition, plan.SectionWorkout}
}

// ToneFilter rephrases rationale strings for the psychology tone.
type ToneFilter struct{}

func (ToneFilter) Name() string    { return RuleToneFilter }
func (ToneFilter) Fields() []Field { return []Field{FieldRationale} }

func (ToneFilter) Applies(d *Draft) bool {
	_, ok := tonePrefixes[d.Decision.Psychology.Tone]
	return ok
}

func (ToneFilter) Apply(d *Draft, open map[Field]bool) {
	prefix := tonePrefixes[d.Decision.Psychology.Tone]
	for _, r := range []*string{
		&d.Decision.Metabolic.Rationale,
		&d.Decision.Psychology.Rationale,
		&d.Decision.Stress.Rationale,
		&d.Decision.TodayFocus.Rationale,
	} {
		if *r != "" {
			*r = prefix + *r
		}
	}
}

var tonePrefixes = map[plan.Tone]string{
	plan.ToneSupportive:  "Be kind to yourself: ",
	plan.ToneDirective:   "Plan for today: ",
	plan.ToneEducational: "Why this matters: ",
}

// Default lets the workout source's suggestion and the standard summary
// order stand.
type Default struct{}

func (Default) Name() string          { return RuleDefault }
func (Default) Fields() []Field       { return []Field{FieldWorkout, FieldSummary} }
func (Default) Applies(d *Draft) bool { return true }

func (Default) Apply(d *Draft, open map[Field]bool) {
	if open[FieldWorkout] {
		w := d.SuggestedWorkout()
		d.Decision.TodayFocus.WorkoutType = w.Type
		d.Decision.TodayFocus.Intensity = w.Intensity
		d.Decision.TodayFocus.DurationMin = w.DurationMin
	}
	if open[FieldSummary] {
		d.Decision.SummaryOrder = []string{plan.SectionWorkout, plan.SectionNutrition}
	}
}
