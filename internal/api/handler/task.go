package handler

import (
	"net/http"
	"strconv"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/task"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks *task.Wrapper
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *task.Wrapper) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List lists tasks, optionally filtered by ?state=, ?name= and ?limit=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.TaskFilter{
		State: domain.TaskState(q.Get("state")),
		Name:  q.Get("name"),
	}
	switch filter.State {
	case "", domain.TaskStateExecuting, domain.TaskStateFinished:
	default:
		respondError(w, http.StatusBadRequest, "state must be executing or finished", domain.ErrCodeInvalidInput)
		return
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer", domain.ErrCodeInvalidInput)
			return
		}
		filter.Limit = n
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}
