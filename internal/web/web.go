package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/hostform"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/task"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/* static/*
var content embed.FS

// OIDCComponents bundles what the OIDC login flow needs.
type OIDCComponents struct {
	Provider       *auth.OIDCProvider
	SessionManager *auth.SessionManager
	StateStore     *auth.StateStore
	LogoutURL      string
}

// Deps holds the services the web UI is built on.
type Deps struct {
	Directory cluster.Directory
	Tasks     *task.Wrapper
	Labels    *i18n.Labels
	Keys      *auth.KeyVerifier
	// InFlight is shared with other surfaces that submit hosts; a private
	// set is created when nil.
	InFlight *hostform.InFlight
	// OIDC is nil when OIDC login is disabled.
	OIDC *OIDCComponents
}

// Server holds dependencies for web handlers.
type Server struct {
	directory cluster.Directory
	tasks     *task.Wrapper
	labels    *i18n.Labels
	keys      *auth.KeyVerifier
	oidc      *OIDCComponents
	inflight  *hostform.InFlight
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// NewRouter creates a new web router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	s := &Server{
		directory: deps.Directory,
		tasks:     deps.Tasks,
		labels:    deps.Labels,
		keys:      deps.Keys,
		oidc:      deps.OIDC,
		inflight:  deps.InFlight,
	}
	if s.inflight == nil {
		s.inflight = hostform.NewInFlight()
	}
	if s.labels == nil {
		s.labels = i18n.Default()
	}

	s.templates = s.parseTemplates()

	r := chi.NewRouter()

	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/auth/login", s.handleOIDCLogin)
	r.Get("/auth/callback", s.handleOIDCCallback)

	// Protected routes (require session)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/hosts", http.StatusSeeOther)
		})

		r.Get("/hosts", s.handleHostsList)
		r.Get("/hosts/new", s.handleHostForm)
		r.Post("/hosts", s.handleHostCreate)
		r.Post("/hosts/{hostname}/maintenance", s.handleHostMaintenance)

		r.Get("/tasks", s.handleTasksList)
	})

	return r
}

// parseTemplates parses every page together with the base layout and components.
func (s *Server) parseTemplates() map[string]*template.Template {
	s.funcMap = template.FuncMap{
		"join":       strings.Join,
		"pathEscape": url.PathEscape,
		"lower":      strings.ToLower,
		"title":      titleCase,
		"dict":       dict,
		"formatTime": formatTime,
		"duration":   formatDuration,
	}

	templates := make(map[string]*template.Template)

	baseContent, _ := content.ReadFile("templates/base.html")
	navContent, _ := content.ReadFile("templates/components/nav.html")
	flashContent, _ := content.ReadFile("templates/components/flash.html")

	baseWithComponents := string(baseContent) + string(navContent) + string(flashContent)

	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl, err := template.New(pageName).Funcs(s.funcMap).Parse(baseWithComponents + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}
		templates[pageName] = tmpl
	}

	return templates
}

// dict creates a map from key-value pairs for use in templates.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatTime(t any) string {
	switch v := t.(type) {
	case time.Time:
		return v.Format("Jan 2, 15:04:05")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format("Jan 2, 15:04:05")
	default:
		return ""
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title       string
	Active      string // Current nav item
	Flash       *FlashMessage
	OIDCEnabled bool
	Content     any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error", "info"
	Message string
}
