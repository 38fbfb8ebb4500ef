package handler

import (
	"errors"
	"net/http"

	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/hostform"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/task"
	"github.com/bcnelson/host-dashboard/internal/validation"
	"github.com/go-chi/chi/v5"
)

// HostHandler handles host endpoints. Writes go through the same form
// controller as the web UI, so validation and task tracking match.
type HostHandler struct {
	directory cluster.Directory
	tasks     *task.Wrapper
	labels    *i18n.Labels
	inflight  *hostform.InFlight
}

// NewHostHandler creates a new HostHandler.
// inflight is shared with the web UI so both reject a hostname already being created.
func NewHostHandler(directory cluster.Directory, tasks *task.Wrapper, labels *i18n.Labels, inflight *hostform.InFlight) *HostHandler {
	return &HostHandler{directory: directory, tasks: tasks, labels: labels, inflight: inflight}
}

// List lists all hosts in the cluster.
func (h *HostHandler) List(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.directory.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, hosts)
}

// Create adds a host to the cluster.
func (h *HostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateHostRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", domain.ErrCodeInvalidInput)
		return
	}

	ctx := r.Context()
	nav := &routeRecorder{}
	c := hostform.New(h.directory, h.tasks, nav, h.labels, hostform.WithInFlight(h.inflight))

	// Without a host list nothing conflicts; the cluster still rejects duplicates.
	_ = c.Init(ctx)

	c.SetForm(hostform.Form{Hostname: req.Hostname, Maintenance: req.Maintenance})
	err := c.Submit(ctx)

	var verrs validation.ValidationErrors
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, redirectResponse{Redirect: nav.route})
	case errors.As(err, &verrs):
		respondValidationErrors(w, verrs)
	case errors.Is(err, hostform.ErrSubmitInProgress):
		respondError(w, http.StatusConflict, "host is already being added", domain.ErrCodeSubmitInProgress)
	default:
		handleError(w, err)
	}
}

// UpdateMaintenance puts a host into or out of maintenance.
func (h *HostHandler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", domain.ErrCodeInvalidInput)
		return
	}

	nav := &routeRecorder{}
	c := hostform.New(h.directory, h.tasks, nav, h.labels)
	if err := c.SetMaintenance(r.Context(), chi.URLParam(r, "hostname"), req.Maintenance); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, redirectResponse{Redirect: nav.route})
}
