package domain

import "time"

// TaskState is the lifecycle state of a tracked task.
type TaskState string

const (
	TaskStateExecuting TaskState = "executing"
	TaskStateFinished  TaskState = "finished"
)

// TaskDescriptor names an operation for tracking, e.g. "host/create".
type TaskDescriptor struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// Task is a tracked operation triggered from the dashboard.
type Task struct {
	ID        string            `json:"id" db:"id"`
	Name      string            `json:"name" db:"name"`
	Metadata  map[string]string `json:"metadata" db:"-"`
	State     TaskState         `json:"state" db:"state"`
	Success   bool              `json:"success" db:"success"`
	Error     string            `json:"error,omitempty" db:"error"`
	BeginTime time.Time         `json:"begin_time" db:"begin_time"`
	EndTime   *time.Time        `json:"end_time,omitempty" db:"end_time"`
}

// Duration returns how long the task ran, or zero while executing.
func (t *Task) Duration() time.Duration {
	if t.EndTime == nil {
		return 0
	}
	return t.EndTime.Sub(t.BeginTime)
}

// TaskFilter narrows a task listing. Zero values match everything.
type TaskFilter struct {
	State TaskState
	Name  string
	Limit int
}

// Matches reports whether the task passes the filter (Limit is not checked).
func (f TaskFilter) Matches(t *Task) bool {
	if f.State != "" && t.State != f.State {
		return false
	}
	if f.Name != "" && t.Name != f.Name {
		return false
	}
	return true
}
