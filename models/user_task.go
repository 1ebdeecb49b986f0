package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CompletionPending   = "pending"   // proof submitted, waiting on review
	CompletionCompleted = "completed" // proof accepted, reward not yet claimed
	CompletionClaimed   = "claimed"   // reward disbursed
	CompletionRejected  = "rejected"
)

// UserTask is one completion cycle of a task by a user.
// Rewards are disbursed exactly once, on the transition into claimed.
type UserTask struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserFID       int64           `gorm:"not null;index:idx_user_tasks_user_task,priority:1" json:"user_fid"`
	TaskID        string          `gorm:"type:varchar(36);not null;index:idx_user_tasks_user_task,priority:2" json:"task_id"`
	Status        string          `gorm:"type:varchar(16);not null;index" json:"status"`
	ProofData     datatypes.JSON  `json:"proof_data,omitempty"`
	TokensAwarded decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"tokens_awarded"`
	PointsAwarded int64           `gorm:"not null;default:0" json:"points_awarded"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	ClaimedAt     *time.Time      `gorm:"index" json:"claimed_at,omitempty"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy    *int64          `json:"verified_by,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *UserTask) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
