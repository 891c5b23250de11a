package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cadence/internal/cycle"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
)

func testContext(phase cycle.Phase, day int) UserContext {
	return UserContext{
		UserID:  "u1",
		Date:    "2026-03-10",
		Profile: profile.Profile{UserID: "u1", Age: 30, WeightKg: 60, HeightCm: 165, ActivityLevel: "moderate"},
		Cycle:   cycle.State{Day: day, Length: 28, Phase: phase},
	}
}

func TestHeuristics_CoverEverySource(t *testing.T) {
	seen := map[ID]bool{}
	for _, p := range Heuristics() {
		res := Evaluate(context.Background(), p, testContext(cycle.PhaseFollicular, 8), nil)
		require.True(t, res.IsOk(), p.ID())
		seen[p.ID()] = true
	}
	for _, id := range AllIDs {
		assert.True(t, seen[id], id)
	}
}

func TestStressProvider(t *testing.T) {
	tests := []struct {
		name  string
		logs  []Log
		state string
	}{
		{"no logs", nil, StressModerate},
		{"calm", []Log{{Stress: 1, SleepHours: 8}}, StressLow},
		{"elevated", []Log{{Stress: 4, SleepHours: 7}, {Stress: 3}}, StressElevated},
		{"critical", []Log{{Stress: 5, SleepHours: 5}, {Stress: 5, SleepHours: 4.5}}, StressCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := StressProvider{}.Evaluate(context.Background(), testContext(cycle.PhaseLuteal, 20), tt.logs)
			require.True(t, res.IsOk())
			assert.Equal(t, tt.state, res.Opinion.Recommendation.String(KeyState))
		})
	}
}

func TestMetabolicProvider_FuelRisk(t *testing.T) {
	uc := testContext(cycle.PhaseLuteal, 20)

	res := MetabolicProvider{}.Evaluate(context.Background(), uc, []Log{{CaloriesIn: 1100}, {CaloriesIn: 1200}})
	require.True(t, res.IsOk())
	risk, ok := res.Opinion.Score(ScoreFuelRisk)
	require.True(t, ok)
	assert.GreaterOrEqual(t, risk, 0.7)

	res = MetabolicProvider{}.Evaluate(context.Background(), uc, []Log{{CaloriesIn: 2100}})
	risk, _ = res.Opinion.Score(ScoreFuelRisk)
	assert.Zero(t, risk)
}

func TestPsychologyProvider_Tone(t *testing.T) {
	uc := testContext(cycle.PhaseFollicular, 9)

	res := PsychologyProvider{}.Evaluate(context.Background(), uc, []Log{{Mood: 1}, {Mood: 2}})
	assert.Equal(t, string(plan.ToneSupportive), res.Opinion.Recommendation.String(KeyTone))
	assert.Equal(t, "low", res.Opinion.Recommendation.String(KeyMotivationState))

	res = PsychologyProvider{}.Evaluate(context.Background(), uc, []Log{{Mood: 3}, {Mood: 3}, {Mood: 3, WorkoutCompleted: true}})
	assert.Equal(t, string(plan.ToneDirective), res.Opinion.Recommendation.String(KeyTone))

	res = PsychologyProvider{}.Evaluate(context.Background(), uc, []Log{{Mood: 5, WorkoutCompleted: true}})
	assert.Equal(t, string(plan.ToneEducational), res.Opinion.Recommendation.String(KeyTone))
}

func TestWorkoutProvider_PhaseTemplates(t *testing.T) {
	tests := []struct {
		phase  cycle.Phase
		day    int
		typ    string
		action plan.PlanAction
	}{
		{cycle.PhaseMenstrual, 1, plan.WorkoutYoga, plan.PlanActionGenerateNew},
		{cycle.PhaseFollicular, 9, plan.WorkoutStrength, plan.PlanActionKeep},
		{cycle.PhaseOvulatory, 15, plan.WorkoutHIIT, plan.PlanActionKeep},
		{cycle.PhaseLuteal, 20, plan.WorkoutPilates, plan.PlanActionKeep},
		{cycle.PhaseLuteal, 26, plan.WorkoutWalk, plan.PlanActionKeep},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			res := WorkoutProvider{}.Evaluate(context.Background(), testContext(tt.phase, tt.day), nil)
			require.True(t, res.IsOk())
			assert.Equal(t, tt.typ, res.Opinion.Recommendation.String(KeyWorkoutType))
			assert.Equal(t, string(tt.action), res.Opinion.Recommendation.String(KeyPlanAction))
		})
	}
}

func TestNutritionProvider_Calories(t *testing.T) {
	res := NutritionProvider{}.Evaluate(context.Background(), testContext(cycle.PhaseFollicular, 9), nil)
	calories, ok := res.Opinion.Recommendation.Int(KeyCalories)
	require.True(t, ok)
	assert.Equal(t, 2046, calories)

	res = NutritionProvider{}.Evaluate(context.Background(), testContext(cycle.PhaseLuteal, 20), nil)
	calories, _ = res.Opinion.Recommendation.Int(KeyCalories)
	assert.Equal(t, 2148, calories)

	uc := testContext(cycle.PhaseMenstrual, 2)
	uc.Profile = profile.Profile{}
	res = NutritionProvider{}.Evaluate(context.Background(), uc, nil)
	calories, _ = res.Opinion.Recommendation.Int(KeyCalories)
	assert.Equal(t, FallbackCalories, calories)
	assert.Contains(t, res.Opinion.Recommendation.String(KeyTip), "iron")
}
