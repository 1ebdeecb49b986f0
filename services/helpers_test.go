package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"agent-grid-rewards/database"
	"agent-grid-rewards/logging"
	"agent-grid-rewards/models"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Tuesday, 09:00 UTC.
var testEpoch = time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	core     *Core
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	clock := clockwork.NewFakeClockAt(testEpoch)
	core := NewCore(db, clock, time.UTC, logging.NewNopLogger())
	core.NotificationHosts = []string{"api.example", "client.example"}
	notifier := &recordingNotifier{sent: make(chan Notification, 16)}
	core.Notifier = notifier

	return &testEnv{core: core, clock: clock, notifier: notifier}
}

func (e *testEnv) createUser(t *testing.T, fid int64, balance int64) *models.User {
	t.Helper()
	user, _, err := NewUserService(e.core).EnsureUser(context.Background(), Identity{FID: fid, Username: "user"})
	require.NoError(t, err)
	if balance != 0 {
		require.NoError(t, e.core.DB.Model(&models.User{}).Where("fid = ?", fid).
			Update("balance", decimal.NewFromInt(balance)).Error)
		user.Balance = decimal.NewFromInt(balance)
	}
	return user
}

func (e *testEnv) createTask(t *testing.T, in TaskInput) *models.Task {
	t.Helper()
	task, err := NewTaskService(e.core).CreateTask(context.Background(), in)
	require.NoError(t, err)
	return task
}

func (e *testEnv) reloadUser(t *testing.T, fid int64) *models.User {
	t.Helper()
	user, err := loadUser(e.core.DB, fid)
	require.NoError(t, err)
	return user
}

func intPtr(v int) *int { return &v }

type recordingNotifier struct {
	mu      sync.Mutex
	targets []NotificationTarget
	sent    chan Notification
}

func (r *recordingNotifier) Send(_ context.Context, target NotificationTarget, n Notification) error {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
	r.sent <- n
	return nil
}
