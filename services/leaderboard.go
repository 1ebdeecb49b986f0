package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"agent-grid-rewards/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeWeekly Scope = "weekly"

	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)

// ParseScope accepts "", "global" and "weekly".
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeWeekly:
		return ScopeWeekly, nil
	}
	return "", ErrInvalidScope
}

type LeaderboardEntry struct {
	Position       int     `json:"position"`
	FID            int64   `json:"fid"`
	Username       string  `json:"username"`
	DisplayName    *string `json:"display_name,omitempty"`
	PfpURL         *string `json:"pfp_url,omitempty"`
	Points         int64   `json:"points"` // accumulated, or this week's for weekly scope
	TasksCompleted int64   `json:"tasks_completed"`
	StreakCount    int     `json:"streak_count"`
	RankTitle      string  `json:"rank_title"`
	RankColor      string  `json:"rank_color"`
}

type leaderboardRow struct {
	FID                 int64
	Username            string
	DisplayName         *string
	PfpURL              *string
	Points              int64
	AccumulatedPoints   int64
	TasksCompletedCount int64
	StreakCount         int
}

type LeaderboardService struct {
	*Core
}

func NewLeaderboardService(core *Core) *LeaderboardService {
	return &LeaderboardService{Core: core}
}

// Leaderboard returns up to limit entries ordered by points descending, ties
// by FID ascending. Positions are contiguous from 1.
func (s *LeaderboardService) Leaderboard(ctx context.Context, scope Scope, limit int) ([]LeaderboardEntry, error) {
	limit = clampLimit(limit, DefaultLeaderboardLimit, MaxLeaderboardLimit)
	switch scope {
	case ScopeWeekly:
		return s.WeekStandings(ctx, s.CurrentWeekKey(), limit)
	case ScopeGlobal, "":
	default:
		return nil, ErrInvalidScope
	}

	var rows []leaderboardRow
	if err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("fid, username, display_name, pfp_url, accumulated_points AS points, accumulated_points, tasks_completed_count, streak_count").
		Order("accumulated_points DESC, fid ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, storeErr("global leaderboard", err)
	}
	return toEntries(rows), nil
}

// WeekStandings is the weekly leaderboard for the week keyed by weekKey.
func (s *LeaderboardService) WeekStandings(ctx context.Context, weekKey string, limit int) ([]LeaderboardEntry, error) {
	var rows []leaderboardRow
	if err := s.DB.WithContext(ctx).
		Table("weekly_scores AS ws").
		Select("u.fid, u.username, u.display_name, u.pfp_url, ws.points, u.accumulated_points, u.tasks_completed_count, u.streak_count").
		Joins("JOIN users u ON u.fid = ws.user_fid").
		Where("ws.week_start = ? AND ws.points > 0", weekKey).
		Order("ws.points DESC, u.fid ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, storeErr("weekly leaderboard", err)
	}
	return toEntries(rows), nil
}

func toEntries(rows []leaderboardRow) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		rank := RankForPoints(r.AccumulatedPoints)
		entries[i] = LeaderboardEntry{
			Position:       i + 1,
			FID:            r.FID,
			Username:       r.Username,
			DisplayName:    r.DisplayName,
			PfpURL:         r.PfpURL,
			Points:         r.Points,
			TasksCompleted: r.TasksCompletedCount,
			StreakCount:    r.StreakCount,
			RankTitle:      rank.Title,
			RankColor:      rank.Color,
		}
	}
	return entries
}

// Position returns fid's own entry with its 1-based position in scope.
func (s *LeaderboardService) Position(ctx context.Context, fid int64, scope Scope) (*LeaderboardEntry, error) {
	db := s.DB.WithContext(ctx)

	user, err := loadUser(db, fid)
	if err != nil {
		return nil, err
	}
	rank := RankForPoints(user.AccumulatedPoints)
	entry := &LeaderboardEntry{
		FID:            user.FID,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		PfpURL:         user.PfpURL,
		Points:         user.AccumulatedPoints,
		TasksCompleted: user.TasksCompletedCount,
		StreakCount:    user.StreakCount,
		RankTitle:      rank.Title,
		RankColor:      rank.Color,
	}

	var ahead int64
	switch scope {
	case ScopeGlobal, "":
		if err := db.Model(&models.User{}).
			Where("accumulated_points > ? OR (accumulated_points = ? AND fid < ?)",
				user.AccumulatedPoints, user.AccumulatedPoints, fid).
			Count(&ahead).Error; err != nil {
			return nil, storeErr("global position", err)
		}
	case ScopeWeekly:
		week := s.CurrentWeekKey()
		var score models.WeeklyScore
		err := db.Where("week_start = ? AND user_fid = ?", week, fid).First(&score).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && score.Points <= 0) {
			return nil, ErrNotRanked
		}
		if err != nil {
			return nil, storeErr("weekly score", err)
		}
		if err := db.Table("weekly_scores").
			Where("week_start = ? AND points > 0", week).
			Where("points > ? OR (points = ? AND user_fid < ?)", score.Points, score.Points, fid).
			Count(&ahead).Error; err != nil {
			return nil, storeErr("weekly position", err)
		}
		entry.Points = score.Points
	default:
		return nil, ErrInvalidScope
	}

	entry.Position = int(ahead) + 1
	return entry, nil
}

// RecomputeWeek rebuilds weekly_scores for the week keyed by weekKey from
// claimed completions. Returns the number of users scored.
func (s *LeaderboardService) RecomputeWeek(ctx context.Context, weekKey string) (int, error) {
	start, err := time.ParseInLocation(weekKeyLayout, weekKey, s.Location)
	if err != nil {
		return 0, err
	}
	end := start.AddDate(0, 0, 7)

	type weekTotal struct {
		UserFID int64
		Points  int64
	}
	var totals []weekTotal
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.UserTask{}).
		Select("user_fid, SUM(points_awarded) AS points").
		Where("status = ? AND claimed_at >= ? AND claimed_at < ?", models.CompletionClaimed, start.UTC(), end.UTC()).
		Group("user_fid").
		Scan(&totals).Error; err != nil {
		return 0, storeErr("sum weekly points", err)
	}
	if len(totals) == 0 {
		return 0, nil
	}

	now := s.now()
	scores := make([]models.WeeklyScore, len(totals))
	for i, t := range totals {
		scores[i] = models.WeeklyScore{WeekStart: weekKey, UserFID: t.UserFID, Points: t.Points, UpdatedAt: now}
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "week_start"}, {Name: "user_fid"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
	}).Create(&scores).Error; err != nil {
		return 0, storeErr("upsert weekly scores", err)
	}
	return len(scores), nil
}

// PreviousWeekKey is the week before the current one.
func (s *LeaderboardService) PreviousWeekKey() string {
	return s.weekStart(s.now()).AddDate(0, 0, -7).Format(weekKeyLayout)
}

func (s *LeaderboardService) IsArchived(ctx context.Context, weekKey string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.WeeklyArchive{}).
		Where("week_start = ?", weekKey).
		Count(&count).Error; err != nil {
		return false, storeErr("check archive", err)
	}
	return count > 0, nil
}

func (s *LeaderboardService) MarkArchived(ctx context.Context, weekKey, objectKey, url string, entries int) error {
	rec := models.WeeklyArchive{
		WeekStart:  weekKey,
		ObjectKey:  objectKey,
		URL:        url,
		Entries:    entries,
		ArchivedAt: s.now(),
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return storeErr("mark archived", err)
	}
	return nil
}
