package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agent-grid-rewards/metrics"
	"agent-grid-rewards/models"
	"agent-grid-rewards/utils"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MultiplierDuration is how long a redeemed multiplier and badge stay live.
const MultiplierDuration = 24 * time.Hour

type RedemptionResult struct {
	RedemptionID string          `json:"redemption_id"`
	Tier         string          `json:"tier"`
	Cost         decimal.Decimal `json:"cost"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Badge        string          `json:"badge"`
	Balance      decimal.Decimal `json:"balance"`
}

type tierRewardData struct {
	Multiplier    decimal.Decimal `json:"multiplier"`
	DurationHours int             `json:"duration_hours"`
	Badge         string          `json:"badge"`
}

type RedemptionService struct {
	*Core
}

func NewRedemptionService(core *Core) *RedemptionService {
	return &RedemptionService{Core: core}
}

// Redeem debits the tier cost and grants the tier multiplier and badge for
// 24h. Debit, grant and the redemption record commit together or not at all.
func (s *RedemptionService) Redeem(ctx context.Context, fid int64, tierKey string) (*RedemptionResult, error) {
	tier, err := TierDescriptor(tierKey)
	if err != nil {
		s.reject("redeem", fid, err)
		return nil, err
	}

	rewardData, err := json.Marshal(tierRewardData{
		Multiplier:    tier.Multiplier,
		DurationHours: int(MultiplierDuration / time.Hour),
		Badge:         tier.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reward data: %w", err)
	}

	var (
		result *RedemptionResult
		user   *models.User
	)
	err = s.withLedgerRetry(ctx, "redeem", func(tx *gorm.DB) error {
		now := s.now()

		var err error
		user, err = loadUser(tx, fid)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(tier.Cost) {
			return ErrInsufficientBalance
		}

		rec := models.Redemption{
			UserFID:    fid,
			Tier:       tier.Key,
			TokenCost:  tier.Cost,
			RewardType: tier.Key + "_tier_reward",
			RewardData: datatypes.JSON(rewardData),
			RedeemedAt: now,
			Status:     models.RedemptionCompleted,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return storeErr("append redemption", err)
		}

		expiresAt := now.Add(MultiplierDuration)
		balance := user.Balance.Sub(tier.Cost)
		badge := tier.Name
		if err := updateLedger(tx, user, map[string]any{
			"balance":               balance,
			"active_multiplier":     tier.Multiplier,
			"multiplier_expires_at": expiresAt,
			"active_badge":          badge,
			"badge_expires_at":      expiresAt,
			"redemptions_count":     user.RedemptionsCount + 1,
		}); err != nil {
			return err
		}
		user.Balance = balance
		user.ActiveMultiplier = tier.Multiplier
		user.MultiplierExpiresAt = &expiresAt
		user.ActiveBadge = &badge
		user.BadgeExpiresAt = &expiresAt
		user.RedemptionsCount++

		result = &RedemptionResult{
			RedemptionID: rec.ID,
			Tier:         tier.Key,
			Cost:         tier.Cost,
			Multiplier:   tier.Multiplier,
			ExpiresAt:    expiresAt,
			Badge:        badge,
			Balance:      balance,
		}
		return nil
	})
	if err != nil {
		s.reject("redeem", fid, err)
		return nil, err
	}

	metrics.RedemptionsTotal.WithLabelValues(tier.Key).Inc()
	s.Log.Info("tier redeemed", "fid", fid, "tier", tier.Key, "cost", tier.Cost.String(), "expires_at", result.ExpiresAt)

	s.afterMutation(ctx, user, &Notification{
		Title: fmt.Sprintf("%s %s tier unlocked", tier.Icon, tier.Name),
		Body: fmt.Sprintf("%sx multiplier active for 24 hours. %s tokens spent.",
			tier.Multiplier.String(), utils.FormatTokens(tier.Cost)),
	})
	return result, nil
}

// ListRedemptions returns fid's redemption records, newest first.
func (s *RedemptionService) ListRedemptions(ctx context.Context, fid int64, limit int) ([]models.Redemption, error) {
	limit = clampLimit(limit, 50, 200)
	var rows []models.Redemption
	if err := s.DB.WithContext(ctx).
		Where("user_fid = ?", fid).
		Order("redeemed_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storeErr("list redemptions", err)
	}
	return rows, nil
}

// Tiers returns the static tier table in ascending order.
func (s *RedemptionService) Tiers() []models.RewardTier {
	out := make([]models.RewardTier, len(models.RewardTiers))
	copy(out, models.RewardTiers)
	return out
}
