package services

import (
	"context"
	"testing"
	"time"

	"agent-grid-rewards/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPoints(t *testing.T, env *testEnv, fid int64, points int64) {
	t.Helper()
	require.NoError(t, env.core.DB.Model(&models.User{}).Where("fid = ?", fid).
		Update("accumulated_points", points).Error)
}

func TestParseScope(t *testing.T) {
	for raw, want := range map[string]Scope{"": ScopeGlobal, "global": ScopeGlobal, "WEEKLY": ScopeWeekly} {
		got, err := ParseScope(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseScope("monthly")
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestLeaderboard_GlobalOrderingAndTies(t *testing.T) {
	env := newTestEnv(t)
	for fid, points := range map[int64]int64{5: 300, 3: 1200, 9: 300, 1: 0, 7: 50000} {
		env.createUser(t, fid, 0)
		setPoints(t, env, fid, points)
	}
	svc := NewLeaderboardService(env.core)

	entries, err := svc.Leaderboard(context.Background(), ScopeGlobal, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	wantFIDs := []int64{7, 3, 5, 9, 1}
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
		assert.Equal(t, wantFIDs[i], e.FID)
	}
	assert.Equal(t, "Grid God", entries[0].RankTitle)
	assert.Equal(t, "Grid Climber", entries[1].RankTitle)

	top2, err := svc.Leaderboard(context.Background(), ScopeGlobal, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)

	pos, err := svc.Position(context.Background(), 9, ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, 4, pos.Position)
	assert.Equal(t, int64(300), pos.Points)
}

func TestLeaderboard_EmptyIsValid(t *testing.T) {
	env := newTestEnv(t)
	svc := NewLeaderboardService(env.core)

	global, err := svc.Leaderboard(context.Background(), ScopeGlobal, 10)
	require.NoError(t, err)
	assert.Empty(t, global)

	weekly, err := svc.Leaderboard(context.Background(), ScopeWeekly, 10)
	require.NoError(t, err)
	assert.Empty(t, weekly)
}

func TestLeaderboard_WeeklyFromClaimedCompletions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, 0)
	env.createUser(t, 2, 0)
	env.createUser(t, 3, 0)
	setPoints(t, env, 3, 9000) // old points do not count this week

	tasks := NewTaskService(env.core)
	daily := env.createTask(t, TaskInput{Title: "Daily", TokenReward: decimal.NewFromInt(5), PointsReward: 10, CooldownHours: intPtr(24)})
	big := env.createTask(t, TaskInput{Title: "Big", TokenReward: decimal.NewFromInt(5), PointsReward: 100})

	// Last Saturday: must not count for the current week.
	lastSaturday := time.Date(2026, time.October, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, env.core.DB.Create(&models.UserTask{
		UserFID:       2,
		TaskID:        big.ID,
		Status:        models.CompletionClaimed,
		TokensAwarded: big.TokenReward,
		PointsAwarded: big.PointsReward,
		CompletedAt:   &lastSaturday,
		ClaimedAt:     &lastSaturday,
		CreatedAt:     lastSaturday,
	}).Error)

	_, err := tasks.CompleteTask(ctx, 1, daily.ID, nil)
	require.NoError(t, err)
	_, err = tasks.CompleteTask(ctx, 2, daily.ID, nil)
	require.NoError(t, err)
	env.clock.Advance(24 * time.Hour)
	_, err = tasks.CompleteTask(ctx, 1, daily.ID, nil)
	require.NoError(t, err)

	lb := NewLeaderboardService(env.core)
	assert.Equal(t, "2026-10-11", lb.CurrentWeekKey())

	n, err := lb.RecomputeWeek(ctx, lb.CurrentWeekKey())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := lb.Leaderboard(ctx, ScopeWeekly, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].FID)
	assert.Equal(t, int64(20), entries[0].Points)
	assert.Equal(t, int64(2), entries[1].FID)
	assert.Equal(t, int64(10), entries[1].Points)

	pos, err := lb.Position(ctx, 2, ScopeWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)

	_, err = lb.Position(ctx, 3, ScopeWeekly)
	require.ErrorIs(t, err, ErrNotRanked)

	// Recompute is idempotent.
	_, err = lb.RecomputeWeek(ctx, lb.CurrentWeekKey())
	require.NoError(t, err)
	var rows int64
	require.NoError(t, env.core.DB.Model(&models.WeeklyScore{}).Where("week_start = ?", "2026-10-11").Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	prev, err := lb.RecomputeWeek(ctx, lb.PreviousWeekKey())
	require.NoError(t, err)
	assert.Equal(t, 1, prev)
}

func TestWeekKey_SundayStart(t *testing.T) {
	env := newTestEnv(t)
	tests := map[time.Time]string{
		time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC):   "2026-10-11", // Sunday midnight
		time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC): "2026-10-11", // Saturday night
		time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC):   "2026-10-18",
		time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC):   "2026-11-01",
	}
	for at, want := range tests {
		assert.Equal(t, want, env.core.WeekKey(at), at.String())
	}
}

func TestArchiveMarkers(t *testing.T) {
	env := newTestEnv(t)
	lb := NewLeaderboardService(env.core)
	ctx := context.Background()

	ok, err := lb.IsArchived(ctx, "2026-10-04")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lb.MarkArchived(ctx, "2026-10-04", "leaderboards/weekly/2026-10-04.json", "", 3))
	require.NoError(t, lb.MarkArchived(ctx, "2026-10-04", "leaderboards/weekly/2026-10-04.json", "", 3))

	ok, err = lb.IsArchived(ctx, "2026-10-04")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-10-04", lb.PreviousWeekKey())
}
