// models/token_mirror.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenMirror caches the on-chain token balance of a user's wallet.
// Read-only with respect to the ledger.
type TokenMirror struct {
	UserFID   int64           `gorm:"primaryKey;autoIncrement:false" json:"user_fid"`
	Address   string          `gorm:"type:varchar(64);not null;index" json:"address"`
	Balance   decimal.Decimal `gorm:"type:numeric(78,18);not null" json:"balance"`
	CheckedAt time.Time       `gorm:"not null" json:"checked_at"`
}
