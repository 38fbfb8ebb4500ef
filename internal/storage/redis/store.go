// Package redis stores task history in Redis so several dashboard
// replicas share one view of executing and finished tasks.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "hostdash"

// TaskStore implements storage.TaskStore on Redis.
// Each task is a JSON string; a sorted set scored by begin time orders them.
type TaskStore struct {
	client *goredis.Client
	prefix string
}

var _ storage.TaskStore = (*TaskStore)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces all keys; defaults to "hostdash".
	Prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*TaskStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &TaskStore{client: client, prefix: prefix}, nil
}

// Close closes the Redis client.
func (s *TaskStore) Close() error {
	return s.client.Close()
}

func (s *TaskStore) taskKey(id string) string { return s.prefix + ":task:" + id }
func (s *TaskStore) indexKey() string         { return s.prefix + ":tasks" }

func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.taskKey(task.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return s.client.ZAdd(ctx, s.indexKey(), goredis.Z{
		Score:  float64(task.BeginTime.UnixNano()),
		Member: task.ID,
	}).Err()
}

func (s *TaskStore) UpdateTask(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.taskKey(task.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", id, err)
	}
	return &task, nil
}

func (s *TaskStore) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(all))
	for _, task := range all {
		if !filter.Matches(task) {
			continue
		}
		tasks = append(tasks, task)
		if filter.Limit > 0 && len(tasks) == filter.Limit {
			break
		}
	}
	return tasks, nil
}

func (s *TaskStore) PruneFinished(ctx context.Context, keep int) error {
	all, err := s.all(ctx)
	if err != nil {
		return err
	}
	var stale []string
	kept := 0
	for _, task := range all {
		if task.State != domain.TaskStateFinished {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		stale = append(stale, task.ID)
	}
	if len(stale) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	members := make([]any, 0, len(stale))
	for _, id := range stale {
		pipe.Del(ctx, s.taskKey(id))
		members = append(members, id)
	}
	pipe.ZRem(ctx, s.indexKey(), members...)
	_, err = pipe.Exec(ctx)
	return err
}

// all returns every indexed task, newest first. Index entries whose
// record has disappeared are skipped.
func (s *TaskStore) all(ctx context.Context) ([]*domain.Task, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var task domain.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("decoding task %s: %w", ids[i], err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}
