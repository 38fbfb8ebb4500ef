package web

import (
	"bytes"
	"errors"
	"html"
	"net/http"
	"strconv"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/hostform"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const finishedTaskLimit = 50

// handleLoginPage renders the login page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		Title:       "Login",
		OIDCEnabled: s.oidc != nil,
	}

	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Flash = &FlashMessage{Type: "error", Message: msg}
	}

	s.render(w, http.StatusOK, "base-noauth", "login", data)
}

// handleLogin processes the API key login form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	apiKey := r.FormValue("api_key")
	if apiKey == "" {
		http.Redirect(w, r, "/login?error=API+key+required", http.StatusSeeOther)
		return
	}

	if _, err := s.keys.Verify(r.Context(), apiKey); err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			log.Error().Err(err).Msg("Login check failed")
			http.Redirect(w, r, "/login?error=Server+error", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login?error=Invalid+API+key", http.StatusSeeOther)
		return
	}

	setSessionCookie(w, apiKey)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears all sessions and redirects to login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	if s.oidc != nil {
		s.oidc.SessionManager.Clear(w)
		if s.oidc.LogoutURL != "" {
			http.Redirect(w, r, s.oidc.LogoutURL, http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HostsListData holds data for the hosts list page.
type HostsListData struct {
	Hosts  []domain.Host
	Labels LabelData
}

// LabelData carries the translated strings a page needs.
type LabelData struct {
	Resource string
	Create   string
	Edit     string
}

func (s *Server) labelData() LabelData {
	return LabelData{
		Resource: s.labels.Resource(i18n.ResourceHost),
		Create:   s.labels.Action(i18n.ActionCreate),
		Edit:     s.labels.Action(i18n.ActionEdit),
	}
}

// handleHostsList renders the hosts list page.
func (s *Server) handleHostsList(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		Title:  "Hosts",
		Active: "hosts",
	}

	hosts, err := s.directory.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load hosts")
		data.Flash = &FlashMessage{Type: "error", Message: "Failed to load hosts from the cluster"}
		hosts = []domain.Host{}
	}
	data.Content = HostsListData{Hosts: hosts, Labels: s.labelData()}

	s.render(w, http.StatusOK, "base", "hosts_list", data)
}

// HostFormData holds data for the host form.
type HostFormData struct {
	View           hostform.View
	LoadingMessage string
	SubmitFailed   string
}

func (s *Server) hostFormData(view hostform.View) HostFormData {
	return HostFormData{
		View:           view,
		LoadingMessage: s.labels.Message(i18n.MessageLoading),
		SubmitFailed:   s.labels.Message(i18n.MessageSubmitFailed),
	}
}

// handleHostForm renders the add-host form.
func (s *Server) handleHostForm(w http.ResponseWriter, r *http.Request) {
	nav := &routeRecorder{}
	c := hostform.New(s.directory, s.tasks, nav, s.labels)

	data := PageData{
		Title:  s.labels.Action(i18n.ActionCreate) + " " + s.labels.Resource(i18n.ResourceHost),
		Active: "hosts",
	}
	if err := c.Init(r.Context()); err != nil {
		data.Flash = &FlashMessage{Type: "info", Message: "Existing hostnames could not be loaded; duplicates are checked by the cluster."}
	}
	data.Content = s.hostFormData(c.Snapshot())

	s.render(w, http.StatusOK, "base", "host_form", data)
}

// handleHostCreate submits the add-host form.
func (s *Server) handleHostCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	nav := &routeRecorder{}
	c := hostform.New(s.directory, s.tasks, nav, s.labels, hostform.WithInFlight(s.inflight))

	// Without a host list nothing conflicts; the cluster still rejects duplicates.
	_ = c.Init(ctx)

	c.SetForm(hostform.Form{
		Hostname:    r.FormValue(validation.FieldHostname),
		Maintenance: parseCheckbox(r.FormValue(validation.FieldMaintenance)),
	})

	err := c.Submit(ctx)
	var verrs validation.ValidationErrors
	switch {
	case err == nil:
		s.navigate(w, r, nav.route)
	case errors.As(err, &verrs):
		s.renderFragment(w, http.StatusUnprocessableEntity, "host_form", "host_form_body", s.hostFormData(c.Snapshot()))
	case errors.Is(err, hostform.ErrSubmitInProgress):
		s.renderError(w, "This host is already being added", http.StatusConflict)
	case errors.Is(err, domain.ErrSubmitFailed):
		s.renderFragment(w, http.StatusBadGateway, "host_form", "host_form_body", s.hostFormData(c.Snapshot()))
	default:
		log.Error().Err(err).Msg("Host submit failed unexpectedly")
		s.renderError(w, "Failed to submit host", http.StatusInternalServerError)
	}
}

// handleHostMaintenance toggles a host's maintenance state.
func (s *Server) handleHostMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		s.renderError(w, "enabled must be true or false", http.StatusBadRequest)
		return
	}

	nav := &routeRecorder{}
	c := hostform.New(s.directory, s.tasks, nav, s.labels)
	hostname := chi.URLParam(r, "hostname")

	if err := c.SetMaintenance(r.Context(), hostname, enabled); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.renderError(w, "Host not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidInput):
			s.renderError(w, "Invalid host", http.StatusBadRequest)
		default:
			s.renderError(w, "Failed to update maintenance state", http.StatusBadGateway)
		}
		return
	}

	s.navigate(w, r, nav.route)
}

// TasksListData holds data for the tasks page.
type TasksListData struct {
	Executing []*domain.Task
	Finished  []*domain.Task
}

// handleTasksList renders executing and recently finished tasks.
func (s *Server) handleTasksList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	executing, err := s.tasks.Executing(ctx)
	if err != nil {
		s.renderError(w, "Failed to load tasks", http.StatusInternalServerError)
		return
	}
	finished, err := s.tasks.Finished(ctx, finishedTaskLimit)
	if err != nil {
		s.renderError(w, "Failed to load tasks", http.StatusInternalServerError)
		return
	}

	data := PageData{
		Title:  "Tasks",
		Active: "tasks",
		Content: TasksListData{
			Executing: executing,
			Finished:  finished,
		},
	}
	s.render(w, http.StatusOK, "base", "tasks_list", data)
}

// routeRecorder is the form navigator for a single request.
type routeRecorder struct {
	route string
}

func (n *routeRecorder) Navigate(route string) { n.route = route }

// navigate sends the browser to route: via HX-Redirect for htmx requests,
// via 303 otherwise.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, route string) {
	if route == "" {
		route = hostform.RouteHosts
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", route)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, route, http.StatusSeeOther)
}

func parseCheckbox(v string) bool {
	switch v {
	case "on", "true", "1":
		return true
	}
	return false
}

// render renders a full page using the base template.
// base is "base" or "base-noauth".
func (s *Server) render(w http.ResponseWriter, status int, base, page string, data PageData) {
	s.execute(w, status, page, base, data)
}

// renderFragment renders a single named block of a page for htmx swaps.
func (s *Server) renderFragment(w http.ResponseWriter, status int, page, block string, data any) {
	s.execute(w, status, page, block, data)
}

func (s *Server) execute(w http.ResponseWriter, status int, page, name string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}

	// Render into a buffer so a template error does not produce half a page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// renderError renders an error message.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`<div class="flash flash-error">` + html.EscapeString(message) + `</div>`))
}
