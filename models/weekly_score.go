package models

import "time"

// WeeklyScore is the points a user earned in one week (Sunday start, "2006-01-02").
// Written only by the weekly aggregation job.
type WeeklyScore struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	WeekStart string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_weekly_scores_week_user,priority:1" json:"week_start"`
	UserFID   int64     `gorm:"not null;uniqueIndex:idx_weekly_scores_week_user,priority:2" json:"user_fid"`
	Points    int64     `gorm:"not null;default:0;index" json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeeklyArchive marks a finished week whose standings were uploaded to object storage.
type WeeklyArchive struct {
	WeekStart  string    `gorm:"primaryKey;type:varchar(10)" json:"week_start"`
	ObjectKey  string    `gorm:"not null" json:"object_key"`
	URL        string    `json:"url"`
	Entries    int       `gorm:"not null" json:"entries"`
	ArchivedAt time.Time `gorm:"not null" json:"archived_at"`
}
