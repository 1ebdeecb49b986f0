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

func strPtr(s string) *string { return &s }

func TestEnsureUser_CreatesThenRefreshesProfileOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.core)
	ctx := context.Background()

	user, created, err := svc.EnsureUser(ctx, Identity{FID: 10, Username: "alice", DisplayName: strPtr("Alice")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, user.Balance.IsZero())
	assert.Equal(t, "1", user.ActiveMultiplier.String())
	assert.Zero(t, user.StreakCount)

	require.NoError(t, env.core.DB.Model(&models.User{}).Where("fid = ?", 10).
		Update("balance", decimal.NewFromInt(77)).Error)

	user, created, err = svc.EnsureUser(ctx, Identity{
		FID:           10,
		Username:      "alice2",
		WalletAddress: strPtr("0x52908400098527886e0f7030069857d2e4169ee7"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice2", user.Username)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Alice", *user.DisplayName, "absent fields are left alone")
	require.NotNil(t, user.WalletAddress)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", *user.WalletAddress)
	assert.Equal(t, "77", user.Balance.String(), "ledger untouched")
}

func TestEnsureUser_DropsInvalidWallet(t *testing.T) {
	env := newTestEnv(t)
	user, _, err := NewUserService(env.core).EnsureUser(context.Background(),
		Identity{FID: 11, Username: "bob", WalletAddress: strPtr("not-an-address")})
	require.NoError(t, err)
	assert.Nil(t, user.WalletAddress)
}

func TestEnsureUser_RejectsNonPositiveFID(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := NewUserService(env.core).EnsureUser(context.Background(), Identity{FID: 0})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, 600)
	setPoints(t, env, 1, 450)
	svc := NewUserService(env.core)

	p, err := svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Grid Walker", p.Rank.Title)
	require.NotNil(t, p.Rank.NextTitle)
	assert.Equal(t, "Grid Runner", *p.Rank.NextTitle)
	assert.Equal(t, int64(50), p.Rank.PointsToNext)
	assert.True(t, p.CanCheckIn)
	assert.Equal(t, "1", p.Multiplier.String())
	assert.Nil(t, p.OnchainBalance)

	_, err = NewCheckinService(env.core).CheckIn(ctx, 1)
	require.NoError(t, err)
	_, err = NewRedemptionService(env.core).Redeem(ctx, 1, "silver")
	require.NoError(t, err)
	require.NoError(t, svc.RecordTokenBalance(ctx, 1, "0xabc", decimal.RequireFromString("12.5")))

	p, err = svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.False(t, p.CanCheckIn)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), p.NextCheckinAt)
	assert.Equal(t, "1.5", p.Multiplier.String())
	require.NotNil(t, p.ActiveBadge)
	assert.Equal(t, "Silver", *p.ActiveBadge)
	assert.Equal(t, "Grid Walker", p.Rank.Title)
	require.NotNil(t, p.OnchainBalance)
	assert.Equal(t, "12.5", p.OnchainBalance.String())

	_, err = svc.GetProfile(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestNotificationTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, 0)
	svc := NewUserService(env.core)

	rejected := []struct {
		name   string
		target NotificationTarget
	}{
		{"unsupported scheme", NotificationTarget{URL: "ftp://api.example/notify", Token: "t"}},
		{"plain http", NotificationTarget{URL: "http://api.example/notify", Token: "t"}},
		{"blank token", NotificationTarget{URL: "https://api.example/notify", Token: " "}},
		{"loopback", NotificationTarget{URL: "https://127.0.0.1/notify", Token: "t"}},
		{"database port", NotificationTarget{URL: "http://127.0.0.1:5432/", Token: "t"}},
		{"metadata service", NotificationTarget{URL: "http://169.254.169.254/latest/meta-data/", Token: "t"}},
		{"private network", NotificationTarget{URL: "https://10.0.0.12/hook", Token: "t"}},
		{"unlisted host", NotificationTarget{URL: "https://evil.example/hook", Token: "t"}},
		{"listed host suffix", NotificationTarget{URL: "https://api.example.evil.example/hook", Token: "t"}},
		{"explicit port", NotificationTarget{URL: "https://api.example:8443/notify", Token: "t"}},
		{"userinfo", NotificationTarget{URL: "https://user:pw@api.example/notify", Token: "t"}},
		{"not a url", NotificationTarget{URL: "::nope", Token: "t"}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetNotificationTarget(ctx, 1, tt.target)
			require.ErrorIs(t, err, ErrInvalidNotificationTarget)
			assert.True(t, IsBadInput(err))
		})
	}
	assert.False(t, env.reloadUser(t, 1).HasNotificationTarget())

	require.NoError(t, svc.SetNotificationTarget(ctx, 1, NotificationTarget{URL: "https://API.example/notify", Token: "tok"}))
	assert.True(t, env.reloadUser(t, 1).HasNotificationTarget())

	require.NoError(t, svc.ClearNotificationTarget(ctx, 1))
	assert.False(t, env.reloadUser(t, 1).HasNotificationTarget())

	err := svc.SetNotificationTarget(ctx, 2, NotificationTarget{URL: "https://api.example/notify", Token: "tok"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestNotificationTarget_NoHostsConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.core.NotificationHosts = nil
	env.createUser(t, 1, 0)

	err := NewUserService(env.core).SetNotificationTarget(context.Background(), 1,
		NotificationTarget{URL: "https://api.example/notify", Token: "tok"})
	require.ErrorIs(t, err, ErrInvalidNotificationTarget)
}

func TestSyncProfiles_OnlyKnownUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, 1, 40)
	svc := NewUserService(env.core)

	changed, err := svc.SyncProfiles(ctx, []ProfileUpdate{
		{FID: 1, Username: "renamed", PfpURL: strPtr("https://img.example/1.png")},
		{FID: 2, Username: "stranger"},
		{FID: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	user := env.reloadUser(t, 1)
	assert.Equal(t, "renamed", user.Username)
	assert.Equal(t, "40", user.Balance.String())

	var count int64
	require.NoError(t, env.core.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "sync never creates users")
}

func TestWalletHolders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewUserService(env.core)
	_, _, err := svc.EnsureUser(ctx, Identity{FID: 1, Username: "a", WalletAddress: strPtr("0x52908400098527886E0F7030069857D2E4169EE7")})
	require.NoError(t, err)
	_, _, err = svc.EnsureUser(ctx, Identity{FID: 2, Username: "b"})
	require.NoError(t, err)

	holders, err := svc.WalletHolders(ctx)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, int64(1), holders[0].FID)
}

func TestRankForPoints(t *testing.T) {
	tests := []struct {
		points int64
		want   string
	}{
		{-5, "Grid Rookie"},
		{0, "Grid Rookie"},
		{99, "Grid Rookie"},
		{100, "Grid Walker"},
		{999, "Grid Runner"},
		{1000, "Grid Climber"},
		{9999, "Grid Master"},
		{10000, "Grid Legend"},
		{1 << 40, "Grid God"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankForPoints(tt.points).Title, "points %d", tt.points)
	}
	assert.Nil(t, NextRank(50000))
}
