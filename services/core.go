package services

import (
	"context"
	"errors"
	"time"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/metrics"
	"agent-grid-rewards/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 3

// Core carries the dependencies every ledger operation needs. The process
// entry point owns the DB handle and the clock; services only borrow them.
type Core struct {
	DB          *gorm.DB
	Clock       clockwork.Clock
	Location    *time.Location // reference timezone for calendar days
	Log         logging.Logger
	MaxAttempts int // optimistic-update retry budget

	Notifier          Notifier
	NotificationHosts []string // webhook hosts users may register; empty allows none
	Achievements      *AchievementService
}

func NewCore(db *gorm.DB, clock clockwork.Clock, loc *time.Location, log logging.Logger) *Core {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Core{
		DB:          db,
		Clock:       clock,
		Location:    loc,
		Log:         log,
		MaxAttempts: defaultMaxAttempts,
		Notifier:    NopNotifier{},
	}
	c.Achievements = &AchievementService{core: c}
	return c
}

func (c *Core) now() time.Time {
	return c.Clock.Now().UTC()
}

// withLedgerRetry runs fn in a transaction and re-runs the whole thing from a
// fresh read when the ledger version moved underneath it.
func (c *Core) withLedgerRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.DB.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, ErrConcurrentUpdate) {
			break
		}
		metrics.LedgerConflictsTotal.WithLabelValues(op).Inc()
		c.Log.Warn("ledger version conflict", "operation", op, "attempt", attempt, "max_attempts", attempts)
	}

	if err != nil && !isDomainError(err) {
		err = storeErr(op, err)
	}
	return err
}

// reject records a failed operation at the right level.
func (c *Core) reject(op string, fid int64, err error) {
	reason := Reason(err)
	metrics.RejectionsTotal.WithLabelValues(op, reason).Inc()
	if errors.Is(err, ErrStore) || errors.Is(err, ErrConcurrentUpdate) {
		c.Log.Error("operation failed", "operation", op, "fid", fid, "error", err)
		return
	}
	c.Log.Info("operation rejected", "operation", op, "fid", fid, "reason", reason)
}

// afterMutation awards achievements and dispatches the notification. Neither
// may fail the operation that triggered it.
func (c *Core) afterMutation(ctx context.Context, user *models.User, n *Notification) {
	if c.Achievements != nil {
		if _, err := c.Achievements.AutoAward(ctx, user.FID); err != nil {
			c.Log.Warn("achievement award failed", "fid", user.FID, "error", err)
		}
	}
	if n != nil {
		c.dispatch(user, *n)
	}
}

func loadUser(tx *gorm.DB, fid int64) (*models.User, error) {
	var user models.User
	if err := tx.Where("fid = ?", fid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("load user", err)
	}
	return &user, nil
}

// updateLedger writes fields to the user row only if its version is unchanged
// since it was read. A lost race yields ErrConcurrentUpdate.
func updateLedger(tx *gorm.DB, user *models.User, fields map[string]any) error {
	fields["version"] = user.Version + 1
	res := tx.Model(&models.User{}).
		Where("fid = ? AND version = ?", user.FID, user.Version).
		Updates(fields)
	if res.Error != nil {
		return storeErr("update ledger", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	user.Version++
	return nil
}
