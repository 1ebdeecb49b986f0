package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Achievement: static definition, seeded from AchievementTriggers on migrate.
type Achievement struct {
	Code        string           `gorm:"primaryKey;type:varchar(32)" json:"code"` // e.g. "STREAK_7"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Rarity      string           `gorm:"type:varchar(16);not null" json:"rarity"`      // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"type:text;serializer:json" json:"threshold"` // all keys must be met
}

// UserAchievement: awarded instance, at most one per (user, code).
type UserAchievement struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserFID   int64     `gorm:"not null;uniqueIndex:idx_user_achievements_user_code,priority:1" json:"user_fid"`
	Code      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_user_achievements_user_code,priority:2" json:"code"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
}

func (u *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Threshold keys
const (
	ThresholdStreak         = "streak"
	ThresholdTasksCompleted = "tasks_completed"
	ThresholdRedemptions    = "redemptions"
	ThresholdPoints         = "points"
)

var AchievementTriggers = []Achievement{
	{
		Code:        "FIRST_CHECKIN",
		Name:        "Plugged In",
		Description: "Checked in for the first time",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdStreak: 1},
	},
	{
		Code:        "STREAK_7",
		Name:        "Week on the Grid",
		Description: "Kept a 7-day check-in streak",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdStreak: 7},
	},
	{
		Code:        "STREAK_30",
		Name:        "Always Online",
		Description: "Kept a 30-day check-in streak",
		Rarity:      "legendary",
		Threshold:   map[string]int64{ThresholdStreak: 30},
	},
	{
		Code:        "FIRST_TASK",
		Name:        "First Job",
		Description: "Completed your first task",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdTasksCompleted: 1},
	},
	{
		Code:        "TASKS_10",
		Name:        "Operator",
		Description: "Completed 10 tasks",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdTasksCompleted: 10},
	},
	{
		Code:        "FIRST_REDEMPTION",
		Name:        "Big Spender",
		Description: "Redeemed a reward tier",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdRedemptions: 1},
	},
	{
		Code:        "GRID_RUNNER",
		Name:        "Grid Runner",
		Description: "Reached 500 points",
		Rarity:      "epic",
		Threshold:   map[string]int64{ThresholdPoints: 500},
	},
}
