package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrImmutableRedemption = errors.New("redemption records are immutable")

const RedemptionCompleted = "completed"

// Redemption is an append-only record of a tier purchase. TokenCost is the
// tier cost at the moment of redemption.
type Redemption struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserFID    int64           `gorm:"not null;index" json:"user_fid"`
	Tier       string          `gorm:"type:varchar(16);not null" json:"tier"`
	TokenCost  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"token_cost"`
	RewardType string          `gorm:"type:varchar(32);not null" json:"reward_type"` // e.g. "gold_tier_reward"
	RewardData datatypes.JSON  `json:"reward_data"`                                  // {"multiplier": "2", "duration_hours": 24, "badge": "Gold"}
	RedeemedAt time.Time       `gorm:"not null;index" json:"redeemed_at"`
	Status     string          `gorm:"type:varchar(16);not null" json:"status"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Redemption) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRedemption
}

func (r *Redemption) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRedemption
}
