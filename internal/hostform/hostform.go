// Package hostform drives the "add host" form: it loads the known
// hostnames, validates input against them and submits new hosts to the
// cluster as tracked tasks.
//
// A Controller starts in StateLoading and moves to StateReady once the
// host list has been fetched. Until then nothing is known to conflict.
package hostform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/task"
	"github.com/bcnelson/host-dashboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// RouteHosts is where the form navigates after a successful submission.
const RouteHosts = "/hosts"

// ErrSubmitInProgress is returned when Submit is called while an earlier
// submission, on this controller or for the same hostname on a shared
// InFlight set, has not returned yet.
var ErrSubmitInProgress = errors.New("submission already in progress")

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route string) { f(route) }

// State is the lifecycle state of the form.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// Form holds the user-editable field values.
type Form struct {
	Hostname    string `json:"hostname"`
	Maintenance bool   `json:"maintenance"`
}

// View is a snapshot of everything needed to render the form.
type View struct {
	Resource     string                      `json:"resource"`
	Action       string                      `json:"action"`
	State        State                       `json:"state"`
	Form         Form                        `json:"form"`
	Errors       validation.ValidationErrors `json:"errors,omitempty"`
	SubmitFailed bool                        `json:"submit_failed"`
	Submitting   bool                        `json:"submitting"`
}

// FieldError returns the message for the first error on field, or "".
func (v View) FieldError(field string) string {
	if e := v.Errors.Field(field); e != nil {
		return e.Message
	}
	return ""
}

// Controller is safe for concurrent use.
type Controller struct {
	directory cluster.Directory
	tasks     *task.Wrapper
	nav       Navigator
	labels    *i18n.Labels
	inflight  *InFlight

	mu           sync.Mutex
	state        State
	form         Form
	known        []string
	errs         validation.ValidationErrors
	submitFailed bool
	submitting   bool
}

// New creates a controller with an empty form in StateLoading.
func New(directory cluster.Directory, tasks *task.Wrapper, nav Navigator, labels *i18n.Labels, opts ...Option) *Controller {
	if labels == nil {
		labels = i18n.Default()
	}
	c := &Controller{
		directory: directory,
		tasks:     tasks,
		nav:       nav,
		labels:    labels,
		state:     StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init fetches the host list once. On failure the controller stays in
// StateLoading and the error is returned.
func (c *Controller) Init(ctx context.Context) error {
	hosts, err := c.directory.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load host list")
		return fmt.Errorf("loading hosts: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = domain.Hostnames(hosts)
	c.state = StateReady
	return nil
}

// SetForm replaces the field values and clears errors from an earlier attempt.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
	c.errs = nil
}

// Validate checks the current field values and records the errors for rendering.
func (c *Controller) Validate() validation.ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = c.validateLocked()
	return c.errs
}

func (c *Controller) validateLocked() validation.ValidationErrors {
	errs := validation.ValidateHostname(c.form.Hostname, c.known)
	for _, e := range errs {
		switch e.Rule {
		case validation.RuleRequired:
			e.Message = c.labels.Message(i18n.MessageRequired)
		case validation.RuleUniqueName:
			e.Message = c.labels.Message(i18n.MessageUniqueHostname)
		}
	}
	return errs
}

// Submit validates the form and creates the host as a tracked task.
//
// Validation failures are returned as validation.ValidationErrors and the
// directory is not called. A failed create sets the submit-failed flag and
// returns an error wrapping domain.ErrSubmitFailed; the form keeps its
// values so the user can retry. On success the navigator is sent to
// RouteHosts.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}
	c.errs = c.validateLocked()
	if c.errs.HasErrors() {
		errs := c.errs
		c.submitFailed = false
		c.mu.Unlock()
		return errs
	}
	form := c.form
	if c.inflight != nil && !c.inflight.acquire(form.Hostname) {
		c.mu.Unlock()
		log.Warn().Str("hostname", form.Hostname).Msg("Host creation already in progress")
		return ErrSubmitInProgress
	}
	c.submitting = true
	c.mu.Unlock()

	status := domain.StatusFor(form.Maintenance)
	desc := task.Descriptor(i18n.ResourceHost, c.labels.Verb(i18n.VerbCreate), map[string]string{
		"hostname": form.Hostname,
	})
	err := c.tasks.Run(ctx, desc, func(ctx context.Context) error {
		return c.directory.Create(ctx, form.Hostname, status)
	})

	if c.inflight != nil {
		c.inflight.release(form.Hostname)
	}
	c.mu.Lock()
	c.submitting = false
	c.submitFailed = err != nil
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("hostname", form.Hostname).Str("status", string(status)).Msg("Host creation failed")
		return fmt.Errorf("%w: %w", domain.ErrSubmitFailed, err)
	}

	log.Info().Str("hostname", form.Hostname).Str("status", string(status)).Msg("Host created")
	c.nav.Navigate(RouteHosts)
	return nil
}

// SetMaintenance puts an existing host into or out of maintenance as a
// tracked task, then navigates to RouteHosts.
func (c *Controller) SetMaintenance(ctx context.Context, hostname string, enabled bool) error {
	if hostname == "" {
		return fmt.Errorf("hostname: %w", domain.ErrInvalidInput)
	}
	desc := task.Descriptor(i18n.ResourceHost, c.labels.Verb(i18n.VerbEdit), map[string]string{
		"hostname":    hostname,
		"maintenance": fmt.Sprint(enabled),
	})
	err := c.tasks.Run(ctx, desc, func(ctx context.Context) error {
		return c.directory.Update(ctx, hostname, enabled)
	})
	if err != nil {
		log.Error().Err(err).Str("hostname", hostname).Bool("maintenance", enabled).Msg("Maintenance update failed")
		return err
	}

	log.Info().Str("hostname", hostname).Bool("maintenance", enabled).Msg("Maintenance updated")
	c.nav.Navigate(RouteHosts)
	return nil
}

// Snapshot returns the current view model.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Resource:     c.labels.Resource(i18n.ResourceHost),
		Action:       c.labels.Action(i18n.ActionCreate),
		State:        c.state,
		Form:         c.form,
		Errors:       append(validation.ValidationErrors(nil), c.errs...),
		SubmitFailed: c.submitFailed,
		Submitting:   c.submitting,
	}
}
