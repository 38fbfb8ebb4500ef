// Package task tracks operations triggered from the dashboard. Every
// tracked call is recorded as executing, then finished with its outcome,
// so the task list shows what ran and whether it worked.
package task

import (
	"context"
	"time"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Wrapper records tracked operations in a task store.
type Wrapper struct {
	store   storage.TaskStore
	metrics *Metrics
	history int
	now     func() time.Time
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithMetrics reports task counts and durations to m.
func WithMetrics(m *Metrics) Option {
	return func(w *Wrapper) { w.metrics = m }
}

// WithHistory keeps at most n finished tasks. Zero keeps all of them.
func WithHistory(n int) Option {
	return func(w *Wrapper) { w.history = n }
}

// NewWrapper creates a Wrapper backed by store.
func NewWrapper(store storage.TaskStore, opts ...Option) *Wrapper {
	w := &Wrapper{store: store, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Descriptor builds the descriptor for an action on a resource,
// e.g. Descriptor("host", "create", map[string]string{"hostname": "a"}).
func Descriptor(resource, verb string, metadata map[string]string) domain.TaskDescriptor {
	return domain.TaskDescriptor{Name: resource + "/" + verb, Metadata: metadata}
}

// WithTracking runs op as a tracked task and returns its result unchanged.
// Failures to record the task are logged and never replace op's outcome.
func WithTracking[T any](ctx context.Context, w *Wrapper, desc domain.TaskDescriptor, op func(context.Context) (T, error)) (T, error) {
	t := w.begin(ctx, desc)
	result, err := op(ctx)
	w.finish(ctx, t, err)
	return result, err
}

// Run is WithTracking for operations without a result.
func (w *Wrapper) Run(ctx context.Context, desc domain.TaskDescriptor, op func(context.Context) error) error {
	_, err := WithTracking(ctx, w, desc, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func (w *Wrapper) begin(ctx context.Context, desc domain.TaskDescriptor) *domain.Task {
	t := &domain.Task{
		ID:        uuid.New().String(),
		Name:      desc.Name,
		Metadata:  desc.Metadata,
		State:     domain.TaskStateExecuting,
		BeginTime: w.now(),
	}
	if err := w.store.CreateTask(ctx, t); err != nil {
		log.Warn().Err(err).Str("task", t.Name).Msg("Could not record task start")
	}
	return t
}

func (w *Wrapper) finish(ctx context.Context, t *domain.Task, opErr error) {
	end := w.now()
	t.State = domain.TaskStateFinished
	t.EndTime = &end
	t.Success = opErr == nil
	if opErr != nil {
		t.Error = opErr.Error()
	}
	w.metrics.observe(t.Name, t.Duration().Seconds(), t.Success)

	// The operation may have been cancelled; its record still has to land.
	ctx = context.WithoutCancel(ctx)
	if err := w.store.UpdateTask(ctx, t); err != nil {
		log.Warn().Err(err).Str("task", t.Name).Msg("Could not record task result")
		return
	}

	evt := log.Info()
	if opErr != nil {
		evt = log.Warn().Err(opErr)
	}
	evt.Str("task", t.Name).Str("id", t.ID).Dur("duration", t.Duration()).Bool("success", t.Success).Msg("Task finished")

	if w.history > 0 {
		if err := w.store.PruneFinished(ctx, w.history); err != nil {
			log.Warn().Err(err).Msg("Could not prune task history")
		}
	}
}

// Executing lists tasks that have not finished yet, newest first.
func (w *Wrapper) Executing(ctx context.Context) ([]*domain.Task, error) {
	return w.store.ListTasks(ctx, domain.TaskFilter{State: domain.TaskStateExecuting})
}

// Finished lists up to limit finished tasks, newest first. A limit of
// zero or less returns all of them.
func (w *Wrapper) Finished(ctx context.Context, limit int) ([]*domain.Task, error) {
	return w.store.ListTasks(ctx, domain.TaskFilter{State: domain.TaskStateFinished, Limit: limit})
}

// List lists tasks matching filter.
func (w *Wrapper) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	return w.store.ListTasks(ctx, filter)
}
