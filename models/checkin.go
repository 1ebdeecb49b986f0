package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Checkin is the append-only log of successful daily check-ins.
type Checkin struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserFID     int64           `gorm:"not null;index" json:"user_fid"`
	StreakCount int             `gorm:"not null" json:"streak_count"`
	Reward      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"reward"`
	CheckedInAt time.Time       `gorm:"not null;index" json:"checked_in_at"`
}

func (c *Checkin) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
