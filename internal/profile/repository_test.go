package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cadence/internal/docstore"
)

func TestRepository_Profile(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemoryStore())

	_, err := repo.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, repo.SaveProfile(ctx, Profile{UserID: "u1", Age: 30, WeightKg: 60}))
	require.NoError(t, repo.SaveProfile(ctx, Profile{UserID: "u1", Age: 31, WeightKg: 61, LastPeriodStart: "2026-03-01"}))

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 31, p.Age)
	assert.Equal(t, "2026-03-01", p.LastPeriodStart)

	assert.ErrorIs(t, repo.SaveProfile(ctx, Profile{}), ErrEmptyUserID)
	assert.ErrorIs(t, repo.SaveProfile(ctx, Profile{UserID: "u1", LastPeriodStart: "March"}), ErrInvalidDate)
}

func TestRepository_RecentLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemoryStore())

	for _, date := range []string{"2026-03-01", "2026-03-04", "2026-03-02", "2026-03-05", "2026-03-03"} {
		require.NoError(t, repo.RecordLog(ctx, DailyLog{UserID: "u1", Date: date, Stress: 2}))
	}
	require.NoError(t, repo.RecordLog(ctx, DailyLog{UserID: "u1", Date: "2026-03-03", Stress: 5}))
	require.NoError(t, repo.RecordLog(ctx, DailyLog{UserID: "u2", Date: "2026-03-04"}))

	logs, err := repo.RecentLogs(ctx, "u1", "2026-03-04", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "2026-03-04", logs[0].Date)
	assert.Equal(t, "2026-03-03", logs[1].Date)
	assert.Equal(t, 5, logs[1].Stress)
	assert.Equal(t, "2026-03-02", logs[2].Date)

	assert.ErrorIs(t, repo.RecordLog(ctx, DailyLog{UserID: "u1", Date: "yesterday"}), ErrInvalidDate)
}

func TestProfile_TDEE(t *testing.T) {
	p := Profile{Age: 30, WeightKg: 60, HeightCm: 165, ActivityLevel: "moderate"}

	bmr, ok := p.BMR()
	require.True(t, ok)
	assert.InDelta(t, 1320.25, bmr, 0.001)

	tdee, ok := p.TDEE()
	require.True(t, ok)
	assert.Equal(t, 2046, tdee)

	p.ActivityFactor = 1.2
	tdee, _ = p.TDEE()
	assert.Equal(t, 1584, tdee)

	_, ok = Profile{}.TDEE()
	assert.False(t, ok)
}
