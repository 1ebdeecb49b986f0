package database

import (
	"fmt"

	"agent-grid-rewards/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to the configured driver. sqlite is meant for local runs and tests.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer; also keeps ":memory:" databases on a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table and seeds the achievement definitions.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.UserTask{},
		&models.Checkin{},
		&models.Redemption{},
		&models.WeeklyScore{},
		&models.WeeklyArchive{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.TokenMirror{},
	); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	defs := make([]models.Achievement, len(models.AchievementTriggers))
	copy(defs, models.AchievementTriggers)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity", "threshold"}),
	}).Create(&defs).Error; err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	return nil
}
