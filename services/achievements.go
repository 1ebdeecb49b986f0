package services

import (
	"context"
	"time"

	"agent-grid-rewards/models"

	"gorm.io/gorm/clause"
)

type AchievementService struct {
	core *Core
}

func NewAchievementService(core *Core) *AchievementService {
	return core.Achievements
}

type AchievementView struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Rarity      string    `json:"rarity"`
	AwardedAt   time.Time `json:"awarded_at"`
}

// AutoAward checks every trigger against the user's ledger and records the
// ones newly met. Idempotent per (user, code). Returns the new codes.
func (s *AchievementService) AutoAward(ctx context.Context, fid int64) ([]string, error) {
	db := s.core.DB.WithContext(ctx)
	user, err := loadUser(db, fid)
	if err != nil {
		return nil, err
	}

	now := s.core.now()
	var awarded []string
	for _, trigger := range models.AchievementTriggers {
		if !meetsThreshold(user, trigger.Threshold) {
			continue
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserAchievement{
			UserFID:   fid,
			Code:      trigger.Code,
			AwardedAt: now,
		})
		if res.Error != nil {
			return awarded, storeErr("award achievement", res.Error)
		}
		if res.RowsAffected > 0 {
			awarded = append(awarded, trigger.Code)
			s.core.Log.Info("achievement awarded", "fid", fid, "code", trigger.Code, "name", trigger.Name)
		}
	}
	return awarded, nil
}

// ListAchievements returns fid's awarded achievements in award order.
func (s *AchievementService) ListAchievements(ctx context.Context, fid int64) ([]AchievementView, error) {
	var rows []models.UserAchievement
	if err := s.core.DB.WithContext(ctx).
		Where("user_fid = ?", fid).
		Order("awarded_at ASC, code ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("list achievements", err)
	}

	defs := make(map[string]models.Achievement, len(models.AchievementTriggers))
	for _, a := range models.AchievementTriggers {
		defs[a.Code] = a
	}

	views := make([]AchievementView, 0, len(rows))
	for _, r := range rows {
		def := defs[r.Code]
		views = append(views, AchievementView{
			Code:        r.Code,
			Name:        def.Name,
			Description: def.Description,
			Rarity:      def.Rarity,
			AwardedAt:   r.AwardedAt,
		})
	}
	return views, nil
}

func meetsThreshold(user *models.User, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case models.ThresholdStreak:
			if int64(user.StreakCount) < required {
				return false
			}
		case models.ThresholdTasksCompleted:
			if user.TasksCompletedCount < required {
				return false
			}
		case models.ThresholdRedemptions:
			if user.RedemptionsCount < required {
				return false
			}
		case models.ThresholdPoints:
			if user.AccumulatedPoints < required {
				return false
			}
		default:
			return false
		}
	}
	return len(req) > 0
}
