// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTask(name string, offset time.Duration) *domain.Task {
	return &domain.Task{
		ID:        uuid.New().String(),
		Name:      name,
		Metadata:  map[string]string{"hostname": "node-" + offset.String()},
		State:     domain.TaskStateExecuting,
		BeginTime: epoch.Add(offset),
	}
}

func finish(t *testing.T, ctx context.Context, s storage.TaskStore, task *domain.Task, taskErr string) {
	t.Helper()
	end := task.BeginTime.Add(time.Second)
	task.State = domain.TaskStateFinished
	task.Success = taskErr == ""
	task.Error = taskErr
	task.EndTime = &end
	require.NoError(t, s.UpdateTask(ctx, task))
}

func ids(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

// TaskStore runs the task store checks against a fresh store from newStore.
func TaskStore(t *testing.T, newStore func(t *testing.T) storage.TaskStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		task := newTask("host/create", 0)
		require.NoError(t, s.CreateTask(ctx, task))

		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Name, got.Name)
		assert.Equal(t, task.Metadata, got.Metadata)
		assert.Equal(t, domain.TaskStateExecuting, got.State)
		assert.Nil(t, got.EndTime)
		assert.True(t, task.BeginTime.Equal(got.BeginTime))
	})

	t.Run("create duplicate", func(t *testing.T) {
		s := newStore(t)
		task := newTask("host/create", 0)
		require.NoError(t, s.CreateTask(ctx, task))
		assert.ErrorIs(t, s.CreateTask(ctx, task), domain.ErrAlreadyExists)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetTask(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.UpdateTask(ctx, newTask("host/create", 0)), domain.ErrNotFound)
	})

	t.Run("finish records outcome", func(t *testing.T) {
		s := newStore(t)
		task := newTask("host/create", 0)
		require.NoError(t, s.CreateTask(ctx, task))
		finish(t, ctx, s, task, "hostname rejected")

		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStateFinished, got.State)
		assert.False(t, got.Success)
		assert.Equal(t, "hostname rejected", got.Error)
		require.NotNil(t, got.EndTime)
		assert.Equal(t, time.Second, got.Duration())
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		s := newStore(t)
		older := newTask("host/create", 0)
		middle := newTask("host/edit", time.Minute)
		newest := newTask("host/create", 2*time.Minute)
		for _, task := range []*domain.Task{older, middle, newest} {
			require.NoError(t, s.CreateTask(ctx, task))
		}
		finish(t, ctx, s, older, "")

		all, err := s.ListTasks(ctx, domain.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID, older.ID}, ids(all))

		executing, err := s.ListTasks(ctx, domain.TaskFilter{State: domain.TaskStateExecuting})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID}, ids(executing))

		creates, err := s.ListTasks(ctx, domain.TaskFilter{Name: "host/create", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID}, ids(creates))
	})

	t.Run("prune keeps newest finished and all executing", func(t *testing.T) {
		s := newStore(t)
		var finished []*domain.Task
		for i := 0; i < 4; i++ {
			task := newTask("host/create", time.Duration(i)*time.Minute)
			require.NoError(t, s.CreateTask(ctx, task))
			finish(t, ctx, s, task, "")
			finished = append(finished, task)
		}
		running := newTask("host/edit", -time.Hour)
		require.NoError(t, s.CreateTask(ctx, running))

		require.NoError(t, s.PruneFinished(ctx, 2))

		all, err := s.ListTasks(ctx, domain.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{finished[3].ID, finished[2].ID, running.ID}, ids(all))
	})
}

// APIKeyStore runs the API key store checks against a fresh store from newStore.
func APIKeyStore(t *testing.T, newStore func(t *testing.T) storage.APIKeyStore) {
	ctx := context.Background()

	t.Run("lifecycle", func(t *testing.T) {
		s := newStore(t)
		key, plaintext, err := domain.NewAPIKey("ci")
		require.NoError(t, err)
		require.NoError(t, s.CreateAPIKey(ctx, key))

		count, err := s.CountAPIKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := s.GetAPIKeyByHash(ctx, domain.HashAPIKey(plaintext))
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.Nil(t, got.LastUsedAt)

		require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))
		got, err = s.GetAPIKeyByHash(ctx, key.KeyHash)
		require.NoError(t, err)
		assert.NotNil(t, got.LastUsedAt)

		keys, err := s.ListAPIKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 1)

		require.NoError(t, s.DeleteAPIKey(ctx, key.ID))
		assert.ErrorIs(t, s.DeleteAPIKey(ctx, key.ID), domain.ErrNotFound)
		_, err = s.GetAPIKeyByHash(ctx, key.KeyHash)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
