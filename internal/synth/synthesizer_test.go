package synth

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/source"
)

var ts = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func ok(id source.ID, scores map[string]float64, rec source.Recommendation, rationale string) source.Result {
	return source.Ok(source.Opinion{SourceID: id, RiskScores: scores, Recommendation: rec, Rationale: rationale, Timestamp: ts})
}

func baseline() []source.Result {
	return []source.Result{
		ok(source.SourceCycle, nil, source.Recommendation{source.KeyPhase: "ovulatory"}, "Day 15"),
		ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: 0.2}, source.Recommendation{source.KeyState: source.StressLow}, "calm week"),
		ok(source.SourceFatigue, map[string]float64{source.ScoreFatigue: 0.2}, nil, "rested"),
		ok(source.SourceMetabolic, map[string]float64{source.ScoreFuelRisk: 0.3, source.ScoreCarbNeed: 0.6}, nil, "fueled"),
		ok(source.SourcePsychology, map[string]float64{source.ScoreAdherenceRisk: 0.1}, source.Recommendation{
			source.KeyMotivationState: "high", source.KeyTone: "educational",
		}, "motivated"),
		ok(source.SourceWorkout, nil, source.Recommendation{
			source.KeyWorkoutType: plan.WorkoutHIIT, source.KeyTitle: "Power intervals",
			source.KeyIntensity: "high", source.KeyDurationMin: 35.0, source.KeyPlanAction: "keep",
		}, "Power intervals suit the ovulatory phase"),
		ok(source.SourceNutrition, nil, source.Recommendation{
			source.KeyTip: "hydrate", source.KeyCalories: 2100.0,
			source.KeyProteinPct: 0.3, source.KeyCarbsPct: 0.45, source.KeyFatsPct: 0.25,
		}, "2100 kcal"),
	}
}

func replace(results []source.Result, r source.Result) []source.Result {
	out := make([]source.Result, 0, len(results))
	for _, existing := range results {
		if existing.Source != r.Source {
			out = append(out, existing)
		}
	}
	return append(out, r)
}

func TestSynthesize_DefaultStands(t *testing.T) {
	d := Synthesize(baseline())

	assert.Equal(t, plan.WorkoutHIIT, d.TodayFocus.WorkoutType)
	assert.Equal(t, plan.IntensityHigh, d.TodayFocus.Intensity)
	assert.Equal(t, 35, d.TodayFocus.DurationMin)
	assert.Equal(t, 2100, d.TodayFocus.Calories)
	assert.Equal(t, "hydrate", d.TodayFocus.NutritionTip)
	assert.Equal(t, []string{plan.SectionWorkout, plan.SectionNutrition}, d.SummaryOrder)
	assert.Equal(t, []string{RuleToneFilter, RuleDefault}, d.AppliedRules)
	assert.Equal(t, plan.ReadinessPush, d.Readiness)
	assert.Equal(t, plan.PlanActionKeep, d.PlanAction)
	assert.False(t, d.Degraded)
}

func TestSynthesize_StressDominance(t *testing.T) {
	results := replace(baseline(), ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: 0.95},
		source.Recommendation{source.KeyState: source.StressCritical}, "overloaded"))

	d := Synthesize(results)
	assert.Equal(t, plan.WorkoutWalk, d.TodayFocus.WorkoutType)
	assert.Equal(t, plan.IntensityLow, d.TodayFocus.Intensity)
	assert.LessOrEqual(t, d.TodayFocus.DurationMin, StressDurationCapMin)
	assert.Equal(t, plan.ReadinessRecover, d.Readiness)
	assert.Equal(t, plan.PlanActionGenerateNew, d.PlanAction)
	assert.Equal(t, []string{RuleStressDominance, RuleToneFilter, RuleDefault}, d.AppliedRules)
	// default still orders the summary because stress only claimed the workout
	assert.Equal(t, []string{plan.SectionWorkout, plan.SectionNutrition}, d.SummaryOrder)
}

func TestSynthesize_StressLoadAloneTriggersDominance(t *testing.T) {
	results := replace(baseline(), ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: 0.9},
		source.Recommendation{source.KeyState: source.StressElevated}, ""))

	d := Synthesize(results)
	assert.Equal(t, plan.IntensityLow, d.TodayFocus.Intensity)
	assert.Contains(t, d.AppliedRules, RuleStressDominance)
}

func TestSynthesize_StressCriticalNeverHighestTier(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	types := []string{plan.WorkoutHIIT, "HIIT", plan.WorkoutRun, plan.WorkoutStrength, plan.WorkoutPilates, plan.WorkoutYoga, "climbing", ""}
	intensities := []string{"low", "moderate", "high", "extreme", ""}
	states := []string{source.StressCritical, source.StressOverloaded, "Critical", " OVERLOADED "}

	for i := 0; i < 500; i++ {
		results := baseline()
		results = replace(results, ok(source.SourceWorkout, nil, source.Recommendation{
			source.KeyWorkoutType: types[rng.Intn(len(types))],
			source.KeyIntensity:   intensities[rng.Intn(len(intensities))],
			source.KeyDurationMin: float64(rng.Intn(120)),
		}, "suggested"))
		results = replace(results, ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: rng.Float64()},
			source.Recommendation{source.KeyState: states[rng.Intn(len(states))]}, ""))
		results = replace(results, ok(source.SourceMetabolic, map[string]float64{source.ScoreFuelRisk: rng.Float64()}, nil, ""))

		d := Synthesize(results)
		require.Less(t, plan.WorkoutTier(d.TodayFocus.WorkoutType), plan.HighestTier)
		require.Equal(t, 0, plan.WorkoutTier(d.TodayFocus.WorkoutType))
		require.Equal(t, plan.IntensityLow, d.TodayFocus.Intensity)
	}
}

func TestSynthesize_StressStateCaseInsensitive(t *testing.T) {
	for _, state := range []string{"Critical", "OVERLOADED", " critical "} {
		t.Run(state, func(t *testing.T) {
			results := replace(baseline(), ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: 0.1},
				source.Recommendation{source.KeyState: state}, ""))

			d := Synthesize(results)
			assert.Equal(t, 0, plan.WorkoutTier(d.TodayFocus.WorkoutType))
			assert.Equal(t, plan.IntensityLow, d.TodayFocus.Intensity)
			assert.Equal(t, plan.ReadinessRecover, d.Readiness)
			assert.Contains(t, d.AppliedRules, RuleStressDominance)
		})
	}
}

func TestSynthesize_WorkoutEnumsCaseInsensitive(t *testing.T) {
	results := replace(baseline(), ok(source.SourceWorkout, nil, source.Recommendation{
		source.KeyWorkoutType: "Strength", source.KeyIntensity: " Moderate",
		source.KeyDurationMin: 40.0, source.KeyPlanAction: "GENERATENEW",
	}, ""))

	d := Synthesize(results)
	assert.Equal(t, plan.WorkoutStrength, d.TodayFocus.WorkoutType)
	assert.Equal(t, plan.IntensityModerate, d.TodayFocus.Intensity)
	assert.Equal(t, plan.PlanActionGenerateNew, d.PlanAction)
}

func TestSynthesize_AbsurdCaloriesClampToCeiling(t *testing.T) {
	for _, kcal := range []float64{1e20, 3e18, 1e10} {
		results := replace(baseline(), ok(source.SourceNutrition, nil, source.Recommendation{
			source.KeyCalories: kcal,
		}, ""))

		d := clamp.Normalize(Synthesize(results))
		assert.Equal(t, clamp.MaxDailyCalories, d.TodayFocus.Calories, "calories %g", kcal)
	}
}

func TestSynthesize_FuelDominance(t *testing.T) {
	results := replace(baseline(), ok(source.SourceMetabolic,
		map[string]float64{source.ScoreFuelRisk: 0.7, source.ScoreCarbNeed: 0.6}, nil, "under-fueled"))

	d := Synthesize(results)
	assert.Equal(t, []string{plan.SectionNutrition, plan.SectionWorkout}, d.SummaryOrder)
	assert.Equal(t, []string{RuleFuelDominance, RuleToneFilter, RuleDefault}, d.AppliedRules)
	// the workout recommendation itself is untouched
	assert.Equal(t, plan.WorkoutHIIT, d.TodayFocus.WorkoutType)
}

func TestSynthesize_ToneRewritesPhrasingOnly(t *testing.T) {
	tones := []plan.Tone{plan.ToneSupportive, plan.ToneDirective, plan.ToneEducational}
	var decisions []plan.Decision
	for _, tone := range tones {
		results := replace(baseline(), ok(source.SourcePsychology, map[string]float64{source.ScoreAdherenceRisk: 0.1},
			source.Recommendation{source.KeyMotivationState: "high", source.KeyTone: string(tone)}, "motivated"))
		decisions = append(decisions, Synthesize(results))
	}

	for i, d := range decisions {
		assert.Equal(t, tonePrefixes[tones[i]]+"fueled", d.Metabolic.Rationale)
		assert.Equal(t, decisions[0].TodayFocus.Calories, d.TodayFocus.Calories)
		assert.Equal(t, decisions[0].Metabolic.FuelRisk, d.Metabolic.FuelRisk)
		assert.Equal(t, decisions[0].MacroTargets, d.MacroTargets)
		assert.Equal(t, decisions[0].TodayFocus.Intensity, d.TodayFocus.Intensity)
	}
	assert.NotEqual(t, decisions[0].TodayFocus.Rationale, decisions[1].TodayFocus.Rationale)
}

func TestSynthesize_UnknownToneFallsBack(t *testing.T) {
	results := replace(baseline(), ok(source.SourcePsychology, nil, source.Recommendation{source.KeyTone: "sarcastic"}, ""))
	d := Synthesize(results)
	assert.Equal(t, source.FallbackTone, d.Psychology.Tone)
}

func TestSynthesize_AllUnavailable(t *testing.T) {
	var results []source.Result
	for _, id := range source.AllIDs {
		results = append(results, source.Unavailable(id, source.ReasonTimeout, nil))
	}

	d := Synthesize(results)
	assert.True(t, d.Degraded)
	assert.Len(t, d.UnavailableSources, len(source.AllIDs))
	assert.Equal(t, source.FallbackFuelRisk, d.Metabolic.FuelRisk)
	assert.Equal(t, source.FallbackMotivation, d.Psychology.MotivationState)
	assert.Equal(t, source.FallbackWorkoutType, d.TodayFocus.WorkoutType)
	assert.Equal(t, source.FallbackIntensity, d.TodayFocus.Intensity)
	assert.Equal(t, source.FallbackCalories, d.TodayFocus.Calories)
	assert.Equal(t, plan.PlanActionKeep, d.PlanAction)
}

func TestSynthesize_EmptyInputIsTotal(t *testing.T) {
	d := Synthesize(nil)
	assert.False(t, d.Degraded)
	assert.Equal(t, source.FallbackWorkoutType, d.TodayFocus.WorkoutType)
	assert.NotEmpty(t, d.SummaryOrder)
}

func TestSynthesize_Deterministic(t *testing.T) {
	results := baseline()
	results = replace(results, source.Unavailable(source.SourceFatigue, source.ReasonMalformed, nil))
	results = replace(results, ok(source.SourceStress, map[string]float64{source.ScoreStressLoad: 0.9},
		source.Recommendation{source.KeyState: source.StressOverloaded}, "deadline week"))

	want := Synthesize(results)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		shuffled := make([]source.Result, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Synthesize(shuffled))
	}
}

func TestSynthesize_ClampsScoresBeforeRules(t *testing.T) {
	results := replace(baseline(), ok(source.SourceMetabolic, map[string]float64{source.ScoreFuelRisk: 4.2}, nil, ""))
	d := Synthesize(results)
	assert.Equal(t, 1.0, d.Metabolic.FuelRisk)
	assert.Contains(t, d.AppliedRules, RuleFuelDominance)
}

func TestLowestTierAlternative(t *testing.T) {
	assert.Equal(t, plan.WorkoutWalk, LowestTierAlternative(plan.WorkoutHIIT))
	assert.Equal(t, plan.WorkoutMobility, LowestTierAlternative(plan.WorkoutStrength))
	assert.Equal(t, plan.WorkoutYoga, LowestTierAlternative(plan.WorkoutPilates))
	assert.Equal(t, plan.WorkoutYoga, LowestTierAlternative(plan.WorkoutYoga))
	assert.Equal(t, plan.WorkoutYoga, LowestTierAlternative("climbing"))
}
