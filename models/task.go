package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TaskTypeDaily   = "daily"
	TaskTypeAgent   = "agent"
	TaskTypeSocial  = "social"
	TaskTypeSpecial = "special"
)

var TaskTypes = []string{TaskTypeDaily, TaskTypeAgent, TaskTypeSocial, TaskTypeSpecial}

// Task is an admin-managed task definition.
// MaxCompletions nil = unlimited; CooldownHours nil = one-shot once claimed.
// Both nil means completable exactly once per user.
type Task struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug           string          `gorm:"uniqueIndex;not null" json:"slug"`
	Type           string          `gorm:"type:varchar(16);not null" json:"type"`
	Title          string          `gorm:"not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	TokenReward    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"token_reward"`
	PointsReward   int64           `gorm:"not null" json:"points_reward"`
	Requirements   datatypes.JSON  `json:"requirements,omitempty"` // e.g. {"cast_contains": "#agentgrid"}
	RequiresProof  bool            `gorm:"not null" json:"requires_proof"`
	IsActive       bool            `gorm:"not null;index" json:"is_active"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	MaxCompletions *int            `json:"max_completions,omitempty"`
	CooldownHours  *int            `json:"cooldown_hours,omitempty"`
	SortOrder      int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AvailableAt reports whether the task is active and not expired at now.
func (t *Task) AvailableAt(now time.Time) bool {
	return t.IsActive && (t.ExpiresAt == nil || now.Before(*t.ExpiresAt))
}

// CompletionCap is the number of claimed completions a user may hold, or -1 for unlimited.
func (t *Task) CompletionCap() int {
	if t.MaxCompletions != nil {
		return *t.MaxCompletions
	}
	if t.CooldownHours == nil {
		return 1
	}
	return -1
}
