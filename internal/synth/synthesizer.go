package synth

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/cycle"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/source"
)

// Readiness thresholds.
const (
	RecoverFatigue = 0.8
	GentleFatigue  = 0.6
	PushFatigue    = 0.3
)

// Draft is the decision under construction plus the opinions it came from.
type Draft struct {
	Decision plan.Decision
	opinions map[source.ID]source.Opinion
}

// Opinion returns the opinion used for id (a fallback when unavailable).
func (d *Draft) Opinion(id source.ID) source.Opinion {
	if op, ok := d.opinions[id]; ok {
		return op
	}
	return source.Fallback(id)
}

// SuggestedWorkout reads the workout source's suggestion, filling gaps from
// the fallback workout.
func (d *Draft) SuggestedWorkout() plan.Workout {
	rec := d.Opinion(source.SourceWorkout).Recommendation
	w := plan.Workout{
		Title:       rec.String(source.KeyTitle),
		Type:        rec.Enum(source.KeyWorkoutType),
		Intensity:   plan.Intensity(rec.Enum(source.KeyIntensity)),
		DurationMin: source.FallbackDurationMin,
	}
	if w.Type == "" {
		w.Type = source.FallbackWorkoutType
	}
	if w.Title == "" {
		w.Title = w.Type
	}
	switch w.Intensity {
	case plan.IntensityLow, plan.IntensityModerate, plan.IntensityHigh:
	default:
		w.Intensity = source.FallbackIntensity
	}
	if n, ok := rec.Int(source.KeyDurationMin); ok && n > 0 {
		w.DurationMin = n
	}
	return w
}

// Synthesizer applies rules to opinions.
type Synthesizer struct {
	rules []Rule
}

// New creates a synthesizer with the given rules, or DefaultRules when none
// are passed.
func New(rules ...Rule) *Synthesizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Synthesizer{rules: rules}
}

// Synthesize reconciles results into one Decision. It is total and
// deterministic: the same set of results always yields the same Decision,
// whatever order they arrive in.
func (s *Synthesizer) Synthesize(results []source.Result) plan.Decision {
	d := newDraft(results)

	claimed := map[Field]bool{}
	for _, rule := range s.rules {
		open := map[Field]bool{}
		for _, f := range rule.Fields() {
			if !claimed[f] {
				open[f] = true
			}
		}
		if len(open) == 0 || !rule.Applies(d) {
			continue
		}
		rule.Apply(d, open)
		for f := range open {
			claimed[f] = true
		}
		d.Decision.AppliedRules = append(d.Decision.AppliedRules, rule.Name())
	}

	return d.Decision
}

// Synthesize runs the default rules.
func Synthesize(results []source.Result) plan.Decision {
	return New().Synthesize(results)
}

func newDraft(results []source.Result) *Draft {
	sorted := make([]source.Result, len(results))
	copy(sorted, results)
	source.SortResults(sorted)

	d := &Draft{opinions: map[source.ID]source.Opinion{}}
	var unavailable []string
	for _, r := range sorted {
		if !r.IsOk() {
			unavailable = append(unavailable, string(r.Source))
			continue
		}
		if _, dup := d.opinions[r.Source]; dup {
			continue
		}
		op := *r.Opinion
		op.RiskScores = clamp.Scores(op.RiskScores)
		d.opinions[r.Source] = op
	}
	for _, id := range source.AllIDs {
		if _, ok := d.opinions[id]; !ok {
			d.opinions[id] = source.Fallback(id)
		}
	}
	sort.Strings(unavailable)
	unavailable = dedupe(unavailable)

	d.Decision = base(d)
	d.Decision.UnavailableSources = unavailable
	d.Decision.Degraded = len(unavailable) > 0
	d.Decision.AppliedRules = []string{}
	return d
}

// base assembles the decision fields no rule competes for.
func base(d *Draft) plan.Decision {
	metabolic := d.Opinion(source.SourceMetabolic)
	psych := d.Opinion(source.SourcePsychology)
	stress := d.Opinion(source.SourceStress)
	fatigue := d.Opinion(source.SourceFatigue)
	nutrition := d.Opinion(source.SourceNutrition)
	workout := d.Opinion(source.SourceWorkout)

	dec := plan.Decision{
		Metabolic: plan.Metabolic{
			FuelRisk:  scoreOr(metabolic, source.ScoreFuelRisk, source.FallbackFuelRisk),
			CarbNeed:  scoreOr(metabolic, source.ScoreCarbNeed, source.FallbackCarbNeed),
			Rationale: metabolic.Rationale,
		},
		Psychology: plan.Psychology{
			MotivationState: stringOr(psych.Recommendation, source.KeyMotivationState, source.FallbackMotivation),
			AdherenceRisk:   scoreOr(psych, source.ScoreAdherenceRisk, source.FallbackAdherenceRisk),
			Tone:            plan.Tone(enumOr(psych.Recommendation, source.KeyTone, string(source.FallbackTone))),
			Rationale:       psych.Rationale,
		},
		Stress: plan.Stress{
			State:     enumOr(stress.Recommendation, source.KeyState, source.FallbackStressState),
			Load:      scoreOr(stress, source.ScoreStressLoad, source.FallbackStressLoad),
			Rationale: stress.Rationale,
		},
		FatigueRisk: scoreOr(fatigue, source.ScoreFatigue, source.FallbackFatigue),
		PlanAction:  plan.PlanActionKeep,
		TodayFocus: plan.TodayFocus{
			NutritionTip: stringOr(nutrition.Recommendation, source.KeyTip, source.FallbackNutritionTip),
			Calories:     intOr(nutrition.Recommendation, source.KeyCalories, source.FallbackCalories),
			Rationale:    workout.Rationale,
		},
		MacroTargets: plan.MacroTargets{
			ProteinPct: floatOr(nutrition.Recommendation, source.KeyProteinPct, source.FallbackProteinPct),
			CarbsPct:   floatOr(nutrition.Recommendation, source.KeyCarbsPct, source.FallbackCarbsPct),
			FatsPct:    floatOr(nutrition.Recommendation, source.KeyFatsPct, source.FallbackFatsPct),
		},
	}

	if strings.EqualFold(workout.Recommendation.Enum(source.KeyPlanAction), string(plan.PlanActionGenerateNew)) {
		dec.PlanAction = plan.PlanActionGenerateNew
	}

	if _, ok := tonePrefixes[dec.Psychology.Tone]; !ok {
		dec.Psychology.Tone = source.FallbackTone
	}

	phase := cycle.Phase(d.Opinion(source.SourceCycle).Recommendation.Enum(source.KeyPhase))
	dec.Readiness = readiness(dec.FatigueRisk, dec.Stress.State, phase)
	return dec
}

// readiness derives the day's readiness from fatigue, stress and phase.
func readiness(fatigue float64, stressState string, phase cycle.Phase) plan.Readiness {
	switch {
	case fatigue >= RecoverFatigue || stressState == source.StressCritical || stressState == source.StressOverloaded:
		return plan.ReadinessRecover
	case fatigue >= GentleFatigue || stressState == source.StressElevated || phase == cycle.PhaseMenstrual:
		return plan.ReadinessGentle
	case fatigue < PushFatigue && (phase == cycle.PhaseFollicular || phase == cycle.PhaseOvulatory):
		return plan.ReadinessPush
	default:
		return plan.ReadinessMaintain
	}
}

func scoreOr(op source.Opinion, key string, fallback float64) float64 {
	if v, ok := op.Score(key); ok {
		return v
	}
	return fallback
}

func stringOr(rec source.Recommendation, key, fallback string) string {
	if s := rec.String(key); s != "" {
		return s
	}
	return fallback
}

func enumOr(rec source.Recommendation, key, fallback string) string {
	if s := rec.Enum(key); s != "" {
		return s
	}
	return fallback
}

func floatOr(rec source.Recommendation, key string, fallback float64) float64 {
	if v, ok := rec.Float(key); ok {
		return v
	}
	return fallback
}

func intOr(rec source.Recommendation, key string, fallback int) int {
	if v, ok := rec.Int(key); ok {
		return v
	}
	return fallback
}

func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
