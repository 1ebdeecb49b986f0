package services

import (
	"context"
	"errors"
	"math"
	"time"

	"agent-grid-rewards/metrics"
	"agent-grid-rewards/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompletionResult struct {
	CompletionID      string          `json:"completion_id"`
	Status            string          `json:"status"`
	TokenReward       decimal.Decimal `json:"token_reward"`
	PointsReward      int64           `json:"points_reward"`
	Balance           decimal.Decimal `json:"balance"`
	AccumulatedPoints int64           `json:"accumulated_points"`
}

// TaskView is a task as one user sees it.
type TaskView struct {
	models.Task
	Completions            int64   `json:"completions"`
	LatestStatus           *string `json:"latest_status,omitempty"`
	LatestCompletionID     *string `json:"latest_completion_id,omitempty"`
	CanComplete            bool    `json:"can_complete"`
	CooldownHoursRemaining int     `json:"cooldown_hours_remaining"`
}

type TaskService struct {
	*Core
}

func NewTaskService(core *Core) *TaskService {
	return &TaskService{Core: core}
}

// CompleteTask records a completion of taskID by fid.
//
// Tasks without proof are granted immediately and the record is written as
// claimed. Tasks with proof produce a pending record and grant nothing until
// the proof is verified and the user claims it.
func (s *TaskService) CompleteTask(ctx context.Context, fid int64, taskID string, proof datatypes.JSON) (*CompletionResult, error) {
	var (
		result *CompletionResult
		user   *models.User
	)
	err := s.withLedgerRetry(ctx, "task_complete", func(tx *gorm.DB) error {
		now := s.now()

		task, err := loadAvailableTask(tx, taskID, now)
		if err != nil {
			return err
		}
		user, err = loadUser(tx, fid)
		if err != nil {
			return err
		}

		latest, err := latestCompletion(tx, fid, task.ID)
		if err != nil {
			return err
		}
		if err := checkCooldown(task, latest, now); err != nil {
			return err
		}
		if err := checkCap(tx, task, fid); err != nil {
			return err
		}

		if task.RequiresProof {
			if latest != nil {
				switch latest.Status {
				case models.CompletionPending:
					return ErrProofPending
				case models.CompletionCompleted:
					return ErrAwaitingClaim
				}
			}
			rec := models.UserTask{
				UserFID:       fid,
				TaskID:        task.ID,
				Status:        models.CompletionPending,
				ProofData:     proof,
				TokensAwarded: decimal.Zero,
				CreatedAt:     now,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return storeErr("create completion", err)
			}
			// No balance moves, but the version bump serializes submissions per user.
			if err := updateLedger(tx, user, map[string]any{}); err != nil {
				return err
			}
			result = &CompletionResult{
				CompletionID:      rec.ID,
				Status:            rec.Status,
				TokenReward:       decimal.Zero,
				Balance:           user.Balance,
				AccumulatedPoints: user.AccumulatedPoints,
			}
			return nil
		}

		var rec *models.UserTask
		if latest != nil && latest.Status == models.CompletionPending {
			// Left over from before the task stopped requiring proof.
			if err := transitionCompletion(tx, latest, models.CompletionPending, map[string]any{
				"status":         models.CompletionClaimed,
				"completed_at":   now,
				"claimed_at":     now,
				"tokens_awarded": task.TokenReward,
				"points_awarded": task.PointsReward,
			}); err != nil {
				return err
			}
			rec = latest
		} else {
			rec = &models.UserTask{
				UserFID:       fid,
				TaskID:        task.ID,
				Status:        models.CompletionClaimed,
				ProofData:     proof,
				TokensAwarded: task.TokenReward,
				PointsAwarded: task.PointsReward,
				CompletedAt:   &now,
				ClaimedAt:     &now,
				CreatedAt:     now,
			}
			if err := tx.Create(rec).Error; err != nil {
				return storeErr("create completion", err)
			}
		}

		if err := grantTask(tx, user, task); err != nil {
			return err
		}
		result = &CompletionResult{
			CompletionID:      rec.ID,
			Status:            models.CompletionClaimed,
			TokenReward:       task.TokenReward,
			PointsReward:      task.PointsReward,
			Balance:           user.Balance,
			AccumulatedPoints: user.AccumulatedPoints,
		}
		return nil
	})
	if err != nil {
		s.reject("task_complete", fid, err)
		return nil, err
	}

	metrics.TaskCompletionsTotal.WithLabelValues(result.Status).Inc()
	if result.Status == models.CompletionClaimed {
		s.recordGrant(ctx, user, result)
	} else {
		s.Log.Info("task proof submitted", "fid", fid, "task_id", taskID, "completion_id", result.CompletionID)
	}
	return result, nil
}

// VerifyProof is the admin review of a pending completion: approve moves it to
// completed (claimable), reject moves it to rejected. No ledger change.
func (s *TaskService) VerifyProof(ctx context.Context, completionID string, approve bool, reviewer int64) (*models.UserTask, error) {
	var rec models.UserTask
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", completionID).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCompletionNotFound
			}
			return storeErr("load completion", err)
		}
		if rec.Status != models.CompletionPending {
			return ErrNotPending
		}

		now := s.now()
		fields := map[string]any{
			"status":      models.CompletionRejected,
			"verified_at": now,
			"verified_by": reviewer,
		}
		if approve {
			fields["status"] = models.CompletionCompleted
			fields["completed_at"] = now
		}
		if err := transitionCompletion(tx, &rec, models.CompletionPending, fields); err != nil {
			if errors.Is(err, ErrConcurrentUpdate) {
				return ErrNotPending
			}
			return err
		}
		return tx.Where("id = ?", completionID).First(&rec).Error
	})
	if err != nil {
		if !isDomainError(err) {
			err = storeErr("verify proof", err)
		}
		s.reject("verify_proof", 0, err)
		return nil, err
	}

	s.Log.Info("task proof reviewed", "completion_id", completionID, "approved", approve, "reviewer", reviewer)
	return &rec, nil
}

// ClaimTask disburses a verified completion. The completed -> claimed status
// swap guarantees the reward is paid at most once.
func (s *TaskService) ClaimTask(ctx context.Context, fid int64, completionID string) (*CompletionResult, error) {
	var (
		result *CompletionResult
		user   *models.User
	)
	err := s.withLedgerRetry(ctx, "task_claim", func(tx *gorm.DB) error {
		now := s.now()

		var rec models.UserTask
		if err := tx.Where("id = ? AND user_fid = ?", completionID, fid).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCompletionNotFound
			}
			return storeErr("load completion", err)
		}
		if rec.Status != models.CompletionCompleted {
			return ErrNotClaimable
		}

		var task models.Task
		if err := tx.Where("id = ?", rec.TaskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return storeErr("load task", err)
		}
		if err := checkCap(tx, &task, fid); err != nil {
			return err
		}

		var err error
		user, err = loadUser(tx, fid)
		if err != nil {
			return err
		}

		if err := transitionCompletion(tx, &rec, models.CompletionCompleted, map[string]any{
			"status":         models.CompletionClaimed,
			"claimed_at":     now,
			"tokens_awarded": task.TokenReward,
			"points_awarded": task.PointsReward,
		}); err != nil {
			return err
		}
		if err := grantTask(tx, user, &task); err != nil {
			return err
		}

		result = &CompletionResult{
			CompletionID:      rec.ID,
			Status:            models.CompletionClaimed,
			TokenReward:       task.TokenReward,
			PointsReward:      task.PointsReward,
			Balance:           user.Balance,
			AccumulatedPoints: user.AccumulatedPoints,
		}
		return nil
	})
	if err != nil {
		s.reject("task_claim", fid, err)
		return nil, err
	}

	metrics.TaskCompletionsTotal.WithLabelValues(models.CompletionClaimed).Inc()
	s.recordGrant(ctx, user, result)
	return result, nil
}

// ListTasksForUser returns the available tasks with fid's progress on each.
func (s *TaskService) ListTasksForUser(ctx context.Context, fid int64) ([]TaskView, error) {
	db := s.DB.WithContext(ctx)
	now := s.now()

	var tasks []models.Task
	if err := db.Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Order("sort_order ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, storeErr("list tasks", err)
	}
	if len(tasks) == 0 {
		return []TaskView{}, nil
	}

	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	var recs []models.UserTask
	if err := db.Where("user_fid = ? AND task_id IN ?", fid, ids).
		Order("created_at DESC, id DESC").
		Find(&recs).Error; err != nil {
		return nil, storeErr("list completions", err)
	}

	latest := make(map[string]*models.UserTask, len(tasks))
	claimed := make(map[string]int64, len(tasks))
	for i := range recs {
		r := &recs[i]
		if _, ok := latest[r.TaskID]; !ok {
			latest[r.TaskID] = r
		}
		if r.Status == models.CompletionClaimed {
			claimed[r.TaskID]++
		}
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		view := TaskView{Task: *task, Completions: claimed[task.ID], CanComplete: true}

		last := latest[task.ID]
		if last != nil {
			status, id := last.Status, last.ID
			view.LatestStatus = &status
			view.LatestCompletionID = &id
		}

		var cd *CooldownError
		switch err := checkCooldown(task, last, now); {
		case errors.As(err, &cd):
			view.CanComplete = false
			view.CooldownHoursRemaining = cd.HoursRemaining
		case capReached(task, view.Completions):
			view.CanComplete = false
		case task.RequiresProof && last != nil &&
			(last.Status == models.CompletionPending || last.Status == models.CompletionCompleted):
			view.CanComplete = false
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *TaskService) recordGrant(ctx context.Context, user *models.User, result *CompletionResult) {
	tokens, _ := result.TokenReward.Float64()
	metrics.TokensGrantedTotal.WithLabelValues("task").Add(tokens)
	s.Log.Info("task reward granted",
		"fid", user.FID,
		"completion_id", result.CompletionID,
		"tokens", result.TokenReward.String(),
		"points", result.PointsReward,
	)
	s.afterMutation(ctx, user, nil)
}

func loadAvailableTask(tx *gorm.DB, taskID string, now time.Time) (*models.Task, error) {
	var task models.Task
	if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, storeErr("load task", err)
	}
	if !task.AvailableAt(now) {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func latestCompletion(tx *gorm.DB, fid int64, taskID string) (*models.UserTask, error) {
	var recs []models.UserTask
	if err := tx.Where("user_fid = ? AND task_id = ?", fid, taskID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&recs).Error; err != nil {
		return nil, storeErr("load latest completion", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// checkCooldown fails while now < completedAt + cooldown, reporting whole hours rounded up.
func checkCooldown(task *models.Task, latest *models.UserTask, now time.Time) error {
	if task.CooldownHours == nil || latest == nil || latest.CompletedAt == nil {
		return nil
	}
	readyAt := latest.CompletedAt.Add(time.Duration(*task.CooldownHours) * time.Hour)
	if !now.Before(readyAt) {
		return nil
	}
	return &CooldownError{HoursRemaining: int(math.Ceil(readyAt.Sub(now).Hours()))}
}

func checkCap(tx *gorm.DB, task *models.Task, fid int64) error {
	if task.CompletionCap() < 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&models.UserTask{}).
		Where("user_fid = ? AND task_id = ? AND status = ?", fid, task.ID, models.CompletionClaimed).
		Count(&count).Error; err != nil {
		return storeErr("count completions", err)
	}
	if capReached(task, count) {
		return ErrMaxCompletions
	}
	return nil
}

func capReached(task *models.Task, claimed int64) bool {
	limit := task.CompletionCap()
	return limit >= 0 && claimed >= int64(limit)
}

// transitionCompletion updates rec only if it is still in status from.
func transitionCompletion(tx *gorm.DB, rec *models.UserTask, from string, fields map[string]any) error {
	res := tx.Model(&models.UserTask{}).
		Where("id = ? AND status = ?", rec.ID, from).
		Updates(fields)
	if res.Error != nil {
		return storeErr("update completion", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	if status, ok := fields["status"].(string); ok {
		rec.Status = status
	}
	return nil
}

func grantTask(tx *gorm.DB, user *models.User, task *models.Task) error {
	balance := user.Balance.Add(task.TokenReward)
	points := user.AccumulatedPoints + task.PointsReward
	completed := user.TasksCompletedCount + 1
	if err := updateLedger(tx, user, map[string]any{
		"balance":               balance,
		"accumulated_points":    points,
		"tasks_completed_count": completed,
	}); err != nil {
		return err
	}
	user.Balance = balance
	user.AccumulatedPoints = points
	user.TasksCompletedCount = completed
	return nil
}
