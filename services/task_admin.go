package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"agent-grid-rewards/models"

	"github.com/BurntSushi/toml"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskInput is an admin or catalog task definition.
type TaskInput struct {
	Slug           string          `json:"slug" toml:"slug"`
	Type           string          `json:"type" toml:"type"`
	Title          string          `json:"title" toml:"title"`
	Description    string          `json:"description" toml:"description"`
	TokenReward    decimal.Decimal `json:"token_reward" toml:"token_reward"`
	PointsReward   int64           `json:"points_reward" toml:"points_reward"`
	Requirements   map[string]any  `json:"requirements,omitempty" toml:"requirements"`
	RequiresProof  bool            `json:"requires_proof" toml:"requires_proof"`
	IsActive       *bool           `json:"is_active,omitempty" toml:"is_active"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty" toml:"expires_at"`
	MaxCompletions *int            `json:"max_completions,omitempty" toml:"max_completions"`
	CooldownHours  *int            `json:"cooldown_hours,omitempty" toml:"cooldown_hours"`
	SortOrder      int             `json:"sort_order" toml:"sort_order"`
}

// TaskPatch updates only the fields that are set.
type TaskPatch struct {
	Title          *string          `json:"title,omitempty"`
	Description    *string          `json:"description,omitempty"`
	TokenReward    *decimal.Decimal `json:"token_reward,omitempty"`
	PointsReward   *int64           `json:"points_reward,omitempty"`
	RequiresProof  *bool            `json:"requires_proof,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	MaxCompletions *int             `json:"max_completions,omitempty"`
	CooldownHours  *int             `json:"cooldown_hours,omitempty"`
	SortOrder      *int             `json:"sort_order,omitempty"`
}

type taskCatalog struct {
	Tasks []TaskInput `toml:"task"`
}

// LoadTaskCatalog reads [[task]] entries from a TOML file.
func LoadTaskCatalog(path string) ([]TaskInput, error) {
	var catalog taskCatalog
	if _, err := toml.DecodeFile(path, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode task catalog %s: %w", path, err)
	}
	return catalog.Tasks, nil
}

func (in TaskInput) toModel() (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if in.Type == "" {
		in.Type = models.TaskTypeDaily
	}
	if !slices.Contains(models.TaskTypes, in.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTask, in.Type)
	}
	if in.TokenReward.IsNegative() || in.PointsReward < 0 {
		return nil, fmt.Errorf("%w: rewards must not be negative", ErrInvalidTask)
	}
	if in.MaxCompletions != nil && *in.MaxCompletions < 1 {
		return nil, fmt.Errorf("%w: max_completions must be at least 1", ErrInvalidTask)
	}
	if in.CooldownHours != nil && *in.CooldownHours < 1 {
		return nil, fmt.Errorf("%w: cooldown_hours must be at least 1", ErrInvalidTask)
	}

	s := in.Slug
	if s == "" {
		s = in.Title
	}
	s = slug.Make(s)
	if s == "" {
		return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidTask, in.Title)
	}

	var reqs datatypes.JSON
	if len(in.Requirements) > 0 {
		raw, err := json.Marshal(in.Requirements)
		if err != nil {
			return nil, fmt.Errorf("%w: requirements: %v", ErrInvalidTask, err)
		}
		reqs = raw
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	var expires *time.Time
	if in.ExpiresAt != nil {
		t := in.ExpiresAt.UTC()
		expires = &t
	}

	return &models.Task{
		Slug:           s,
		Type:           in.Type,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		TokenReward:    in.TokenReward,
		PointsReward:   in.PointsReward,
		Requirements:   reqs,
		RequiresProof:  in.RequiresProof,
		IsActive:       active,
		ExpiresAt:      expires,
		MaxCompletions: in.MaxCompletions,
		CooldownHours:  in.CooldownHours,
		SortOrder:      in.SortOrder,
	}, nil
}

// CreateTask adds a task. The slug defaults to the slugified title.
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	task, err := in.toModel()
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Task{}).Where("slug = ?", task.Slug).Count(&count).Error; err != nil {
		return nil, storeErr("check slug", err)
	}
	if count > 0 {
		return nil, ErrDuplicateTask
	}
	if err := db.Create(task).Error; err != nil {
		return nil, storeErr("create task", err)
	}
	s.Log.Info("task created", "task_id", task.ID, "slug", task.Slug)
	return task, nil
}

// UpdateTask applies patch to the task with id.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*models.Task, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
		}
		fields["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.TokenReward != nil {
		if patch.TokenReward.IsNegative() {
			return nil, fmt.Errorf("%w: token_reward must not be negative", ErrInvalidTask)
		}
		fields["token_reward"] = *patch.TokenReward
	}
	if patch.PointsReward != nil {
		if *patch.PointsReward < 0 {
			return nil, fmt.Errorf("%w: points_reward must not be negative", ErrInvalidTask)
		}
		fields["points_reward"] = *patch.PointsReward
	}
	if patch.RequiresProof != nil {
		fields["requires_proof"] = *patch.RequiresProof
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if patch.ExpiresAt != nil {
		fields["expires_at"] = patch.ExpiresAt.UTC()
	}
	if patch.MaxCompletions != nil {
		if *patch.MaxCompletions < 1 {
			return nil, fmt.Errorf("%w: max_completions must be at least 1", ErrInvalidTask)
		}
		fields["max_completions"] = *patch.MaxCompletions
	}
	if patch.CooldownHours != nil {
		if *patch.CooldownHours < 1 {
			return nil, fmt.Errorf("%w: cooldown_hours must be at least 1", ErrInvalidTask)
		}
		fields["cooldown_hours"] = *patch.CooldownHours
	}
	if patch.SortOrder != nil {
		fields["sort_order"] = *patch.SortOrder
	}

	db := s.DB.WithContext(ctx)
	if len(fields) > 0 {
		res := db.Model(&models.Task{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, storeErr("update task", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrTaskNotFound
		}
	}

	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, storeErr("load task", err)
	}
	return &task, nil
}

// ListAllTasks returns every task, including inactive and expired ones.
func (s *TaskService) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.DB.WithContext(ctx).Order("sort_order ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

// SeedTasks upserts catalog entries by slug. Existing task IDs are kept so
// completion history stays attached.
func (s *TaskService) SeedTasks(ctx context.Context, inputs []TaskInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	tasks := make([]models.Task, 0, len(inputs))
	for i, in := range inputs {
		task, err := in.toModel()
		if err != nil {
			return 0, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		tasks = append(tasks, *task)
	}

	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "title", "description", "token_reward", "points_reward", "requirements",
			"requires_proof", "is_active", "expires_at", "max_completions", "cooldown_hours",
			"sort_order", "updated_at",
		}),
	}).Create(&tasks).Error; err != nil {
		return 0, storeErr("seed tasks", err)
	}
	s.Log.Info("task catalog seeded", "tasks", len(tasks))
	return len(tasks), nil
}
