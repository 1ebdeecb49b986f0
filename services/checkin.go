package services

import (
	"context"
	"fmt"
	"time"

	"agent-grid-rewards/metrics"
	"agent-grid-rewards/models"
	"agent-grid-rewards/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BaseCheckinReward = 10
	StreakBonusPerDay = 2
	MaxStreakBonus    = 50
)

// CheckinReward = base + min(streak*2, 50).
func CheckinReward(streak int) decimal.Decimal {
	bonus := streak * StreakBonusPerDay
	if bonus > MaxStreakBonus {
		bonus = MaxStreakBonus
	}
	return decimal.NewFromInt(int64(BaseCheckinReward + bonus))
}

type CheckinResult struct {
	RewardGranted decimal.Decimal `json:"reward_granted"`
	NewStreak     int             `json:"new_streak"`
	Balance       decimal.Decimal `json:"balance"`
	NextCheckinAt time.Time       `json:"next_checkin_at"`
}

type CheckinService struct {
	*Core
}

func NewCheckinService(core *Core) *CheckinService {
	return &CheckinService{Core: core}
}

// CheckIn grants the daily reward. A second call on the same calendar day is
// rejected with ErrAlreadyCheckedIn and changes nothing.
func (s *CheckinService) CheckIn(ctx context.Context, fid int64) (*CheckinResult, error) {
	var (
		result *CheckinResult
		user   *models.User
	)
	err := s.withLedgerRetry(ctx, "checkin", func(tx *gorm.DB) error {
		now := s.now()

		var err error
		user, err = loadUser(tx, fid)
		if err != nil {
			return err
		}

		newStreak := 1
		if user.LastCheckinAt != nil {
			switch days := s.daysBetween(*user.LastCheckinAt, now); {
			case days <= 0:
				return ErrAlreadyCheckedIn
			case days == 1:
				newStreak = user.StreakCount + 1
			}
		}

		reward := CheckinReward(newStreak)
		balance := user.Balance.Add(reward)
		if err := updateLedger(tx, user, map[string]any{
			"balance":         balance,
			"streak_count":    newStreak,
			"last_checkin_at": now,
		}); err != nil {
			return err
		}
		user.Balance = balance
		user.StreakCount = newStreak
		user.LastCheckinAt = &now

		if err := tx.Create(&models.Checkin{
			UserFID:     fid,
			StreakCount: newStreak,
			Reward:      reward,
			CheckedInAt: now,
		}).Error; err != nil {
			return storeErr("append checkin", err)
		}

		_, next := s.checkinWindow(&now, now)
		result = &CheckinResult{
			RewardGranted: reward,
			NewStreak:     newStreak,
			Balance:       balance,
			NextCheckinAt: next,
		}
		return nil
	})
	if err != nil {
		s.reject("checkin", fid, err)
		return nil, err
	}

	metrics.CheckinsTotal.Inc()
	reward, _ := result.RewardGranted.Float64()
	metrics.TokensGrantedTotal.WithLabelValues("checkin").Add(reward)
	s.Log.Info("check-in recorded", "fid", fid, "streak", result.NewStreak, "reward", result.RewardGranted.String())

	s.afterMutation(ctx, user, &Notification{
		Title: "Daily check-in complete",
		Body:  fmt.Sprintf("+%s tokens. Streak: %d day(s).", utils.FormatTokens(result.RewardGranted), result.NewStreak),
	})
	return result, nil
}

// ListCheckins returns the check-in log, newest first.
func (s *CheckinService) ListCheckins(ctx context.Context, fid int64, limit int) ([]models.Checkin, error) {
	limit = clampLimit(limit, 30, 100)
	var rows []models.Checkin
	if err := s.DB.WithContext(ctx).
		Where("user_fid = ?", fid).
		Order("checked_in_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storeErr("list checkins", err)
	}
	return rows, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
