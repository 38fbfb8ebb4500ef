package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
)

// Store is an in-memory implementation of the storage interface.
// Used by tests and by the CLI, which keeps no task history.
type Store struct {
	mu sync.RWMutex

	apiKeys map[string]*domain.APIKey // key: id
	tasks   map[string]*domain.Task   // key: id
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys: make(map[string]*domain.APIKey),
		tasks:   make(map[string]*domain.Task),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.apiKeys[key.ID] = key
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			return key, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.Before(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

// ============================================
// Tasks
// ============================================

func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; !exists {
		return domain.ErrNotFound
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyTask(task), nil
}

func (s *Store) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if filter.Matches(task) {
			tasks = append(tasks, copyTask(task))
		}
	}
	sortNewestFirst(tasks)
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

func (s *Store) PruneFinished(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	finished := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.State == domain.TaskStateFinished {
			finished = append(finished, task)
		}
	}
	sortNewestFirst(finished)
	if keep < 0 {
		keep = 0
	}
	for i := keep; i < len(finished); i++ {
		delete(s.tasks, finished[i].ID)
	}
	return nil
}

func sortNewestFirst(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].BeginTime.After(tasks[j].BeginTime) })
}

// copyTask keeps callers from mutating stored records.
func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}
	return &c
}
