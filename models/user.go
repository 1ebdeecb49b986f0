package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the per-user reward ledger, keyed by the Farcaster FID.
// Created on first contact; mutated only through version-checked updates.
type User struct {
	FID           int64   `gorm:"primaryKey;autoIncrement:false" json:"fid"`
	Username      string  `gorm:"index" json:"username"`
	DisplayName   *string `json:"display_name,omitempty"`
	PfpURL        *string `json:"pfp_url,omitempty"`
	WalletAddress *string `gorm:"type:varchar(64);index" json:"wallet_address,omitempty"`

	// Ledger
	Balance             decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"balance"`
	AccumulatedPoints   int64           `gorm:"not null;default:0;index" json:"accumulated_points"` // never decreases
	StreakCount         int             `gorm:"not null;default:0" json:"streak_count"`
	LastCheckinAt       *time.Time      `json:"last_checkin_at,omitempty"`
	ActiveMultiplier    decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"active_multiplier"`
	MultiplierExpiresAt *time.Time      `json:"multiplier_expires_at,omitempty"`
	TasksCompletedCount int64           `gorm:"not null;default:0" json:"tasks_completed_count"`
	RedemptionsCount    int64           `gorm:"not null;default:0" json:"redemptions_count"`

	// Cosmetic badge from the last redemption, separate from the points rank.
	ActiveBadge    *string    `gorm:"type:varchar(32)" json:"active_badge,omitempty"`
	BadgeExpiresAt *time.Time `json:"badge_expires_at,omitempty"`

	// Mini-app notification target
	NotificationURL   *string `json:"-"`
	NotificationToken *string `json:"-"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// EffectiveMultiplier is ActiveMultiplier until it expires, then 1. Stored values are never reset.
func (u *User) EffectiveMultiplier(now time.Time) decimal.Decimal {
	if u.MultiplierExpiresAt == nil || !now.Before(*u.MultiplierExpiresAt) {
		return decimal.NewFromInt(1)
	}
	return u.ActiveMultiplier
}

// EffectiveBadge returns the redemption badge while it is still live.
func (u *User) EffectiveBadge(now time.Time) *string {
	if u.ActiveBadge == nil || u.BadgeExpiresAt == nil || !now.Before(*u.BadgeExpiresAt) {
		return nil
	}
	return u.ActiveBadge
}

// HasNotificationTarget reports whether the user registered a webhook.
func (u *User) HasNotificationTarget() bool {
	return u.NotificationURL != nil && *u.NotificationURL != "" && u.NotificationToken != nil
}
