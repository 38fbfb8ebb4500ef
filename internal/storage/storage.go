package storage

import (
	"context"

	"github.com/bcnelson/host-dashboard/internal/domain"
)

// APIKeyStore persists dashboard API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)
}

// TaskStore persists tracked tasks.
// ListTasks returns newest tasks first.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	// PruneFinished keeps only the newest keep finished tasks.
	PruneFinished(ctx context.Context, keep int) error
}

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	APIKeyStore
	TaskStore

	// Close closes the storage connection.
	Close() error
}

// Composite serves API keys and tasks from different backends,
// e.g. keys in SQL and tasks in Redis.
type Composite struct {
	APIKeyStore
	TaskStore

	closers []func() error
}

// Compose builds a Storage from separate key and task stores.
// Each closer is called once on Close, in order.
func Compose(keys APIKeyStore, tasks TaskStore, closers ...func() error) *Composite {
	return &Composite{APIKeyStore: keys, TaskStore: tasks, closers: closers}
}

// Close closes every underlying backend and returns the first error.
func (c *Composite) Close() error {
	var first error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
