package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agent-grid-rewards/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUpdateLedger_StaleVersion(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 10)

	stale := env.reloadUser(t, 1)
	fresh := env.reloadUser(t, 1)

	require.NoError(t, updateLedger(env.core.DB, fresh, map[string]any{"balance": decimal.NewFromInt(20)}))
	assert.Equal(t, stale.Version+1, fresh.Version)

	err := updateLedger(env.core.DB, stale, map[string]any{"balance": decimal.NewFromInt(30)})
	require.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, "20", env.reloadUser(t, 1).Balance.String())
}

func TestWithLedgerRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := env.core.withLedgerRetry(ctx, "test", func(tx *gorm.DB) error {
			calls++
			if calls < 2 {
				return ErrConcurrentUpdate
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the budget", func(t *testing.T) {
		calls := 0
		err := env.core.withLedgerRetry(ctx, "test", func(tx *gorm.DB) error {
			calls++
			return ErrConcurrentUpdate
		})
		require.ErrorIs(t, err, ErrConcurrentUpdate)
		assert.Equal(t, env.core.MaxAttempts, calls)
	})

	t.Run("domain errors pass through once", func(t *testing.T) {
		calls := 0
		err := env.core.withLedgerRetry(ctx, "test", func(tx *gorm.DB) error {
			calls++
			return ErrInsufficientBalance
		})
		require.ErrorIs(t, err, ErrInsufficientBalance)
		assert.False(t, errors.Is(err, ErrStore))
		assert.Equal(t, 1, calls)
	})

	t.Run("unknown errors become store failures", func(t *testing.T) {
		err := env.core.withLedgerRetry(ctx, "test", func(tx *gorm.DB) error {
			return errors.New("disk on fire")
		})
		require.ErrorIs(t, err, ErrStore)
		assert.Equal(t, "store_failure", Reason(err))
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		err := env.core.withLedgerRetry(ctx, "test", func(tx *gorm.DB) error {
			if err := tx.Create(&models.User{FID: 77, Username: "ghost"}).Error; err != nil {
				return err
			}
			return ErrAlreadyCheckedIn
		})
		require.ErrorIs(t, err, ErrAlreadyCheckedIn)
		var count int64
		require.NoError(t, env.core.DB.Model(&models.User{}).Where("fid = ?", 77).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUserNotFound, "user_not_found"},
		{fmt.Errorf("wrapped: %w", ErrMaxCompletions), "max_completions_reached"},
		{&CooldownError{HoursRemaining: 3}, "on_cooldown"},
		{storeErr("load", errors.New("boom")), "store_failure"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err))
	}

	cooldown := &CooldownError{HoursRemaining: 5}
	assert.True(t, IsPrecondition(cooldown))
	assert.Contains(t, cooldown.Error(), "5 hour(s)")
	assert.True(t, IsNotFound(ErrNotRanked))
	assert.True(t, IsBadInput(ErrInvalidScope))
	assert.False(t, IsNotFound(ErrStore))
}
