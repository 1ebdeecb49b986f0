package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"agent-grid-rewards/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask_SlugAndValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTaskService(env.core)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Title: "Follow AgentGrid on Farcaster!", TokenReward: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, "follow-agentgrid-on-farcaster", task.Slug)
	assert.Equal(t, models.TaskTypeDaily, task.Type)
	assert.True(t, task.IsActive)
	assert.NotEmpty(t, task.ID)

	_, err = svc.CreateTask(ctx, TaskInput{Title: "follow agentgrid on farcaster"})
	require.ErrorIs(t, err, ErrDuplicateTask)

	invalid := []TaskInput{
		{Title: " "},
		{Title: "Bad type", Type: "quest"},
		{Title: "Negative", TokenReward: decimal.NewFromInt(-1)},
		{Title: "Zero cap", MaxCompletions: intPtr(0)},
		{Title: "Zero cooldown", CooldownHours: intPtr(0)},
	}
	for _, in := range invalid {
		_, err := svc.CreateTask(ctx, in)
		require.ErrorIs(t, err, ErrInvalidTask, in.Title)
		assert.True(t, IsBadInput(err))
	}
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTaskService(env.core)
	ctx := context.Background()
	task := env.createTask(t, TaskInput{Title: "Daily", TokenReward: decimal.NewFromInt(10)})

	off := false
	reward := decimal.NewFromInt(15)
	updated, err := svc.UpdateTask(ctx, task.ID, TaskPatch{IsActive: &off, TokenReward: &reward, CooldownHours: intPtr(12)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "15", updated.TokenReward.String())
	require.NotNil(t, updated.CooldownHours)
	assert.Equal(t, 12, *updated.CooldownHours)

	_, err = svc.UpdateTask(ctx, "missing", TaskPatch{IsActive: &off})
	require.ErrorIs(t, err, ErrTaskNotFound)

	all, err := svc.ListAllTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateTask_RejectsInvalidBounds(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTaskService(env.core)
	ctx := context.Background()
	task := env.createTask(t, TaskInput{Title: "One shot", MaxCompletions: intPtr(1), CooldownHours: intPtr(24)})

	invalid := []struct {
		name  string
		patch TaskPatch
	}{
		{"negative cap", TaskPatch{MaxCompletions: intPtr(-1)}},
		{"zero cap", TaskPatch{MaxCompletions: intPtr(0)}},
		{"zero cooldown", TaskPatch{CooldownHours: intPtr(0)}},
		{"negative cooldown", TaskPatch{CooldownHours: intPtr(-5)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateTask(ctx, task.ID, tt.patch)
			require.ErrorIs(t, err, ErrInvalidTask)
			assert.True(t, IsBadInput(err))
		})
	}

	var stored models.Task
	require.NoError(t, env.core.DB.Where("id = ?", task.ID).First(&stored).Error)
	assert.Equal(t, 1, stored.CompletionCap())
	require.NotNil(t, stored.CooldownHours)
	assert.Equal(t, 24, *stored.CooldownHours)
}

func TestLoadTaskCatalogAndSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[task]]
slug = "daily-grid-sync"
title = "Daily Grid Sync"
token_reward = "25"
points_reward = 10
cooldown_hours = 24

[[task]]
title = "Cast about the Grid"
type = "social"
token_reward = "100.5"
requires_proof = true
max_completions = 4
cooldown_hours = 168
requirements = { cast_contains = "#agentgrid" }
`), 0o600))

	inputs, err := LoadTaskCatalog(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "100.5", inputs[1].TokenReward.String())

	env := newTestEnv(t)
	svc := NewTaskService(env.core)
	ctx := context.Background()

	n, err := svc.SeedTasks(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var first models.Task
	require.NoError(t, env.core.DB.Where("slug = ?", "daily-grid-sync").First(&first).Error)

	// Re-seeding updates in place and keeps IDs.
	inputs[0].Title = "Daily Grid Sync v2"
	_, err = svc.SeedTasks(ctx, inputs)
	require.NoError(t, err)

	all, err := svc.ListAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var again models.Task
	require.NoError(t, env.core.DB.Where("slug = ?", "daily-grid-sync").First(&again).Error)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Daily Grid Sync v2", again.Title)

	var cast models.Task
	require.NoError(t, env.core.DB.Where("slug = ?", "cast-about-the-grid").First(&cast).Error)
	assert.True(t, cast.RequiresProof)
	assert.JSONEq(t, `{"cast_contains":"#agentgrid"}`, string(cast.Requirements))
}

func TestLoadTaskCatalog_ShippedFile(t *testing.T) {
	inputs, err := LoadTaskCatalog(filepath.Join("..", "tasks.toml"))
	require.NoError(t, err)
	assert.NotEmpty(t, inputs)
	for _, in := range inputs {
		_, err := in.toModel()
		assert.NoError(t, err, in.Title)
	}
}

func TestLoadTaskCatalog_MissingFile(t *testing.T) {
	_, err := LoadTaskCatalog(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
