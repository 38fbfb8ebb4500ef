package api

import (
	"net/http"

	"github.com/bcnelson/host-dashboard/internal/api/handler"
	"github.com/bcnelson/host-dashboard/internal/api/middleware"
	"github.com/bcnelson/host-dashboard/internal/hostform"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/bcnelson/host-dashboard/internal/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the dependencies of the HTTP server.
type Deps struct {
	web.Deps
	// KeyStore backs the API key endpoints.
	KeyStore storage.APIKeyStore
	// Gatherer is exposed on /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	if deps.InFlight == nil {
		deps.InFlight = hostform.NewInFlight()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Mount web UI (no Content-Type middleware - serves HTML)
	r.Mount("/", web.NewRouter(deps.Deps))

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(deps.Keys))

		// API Keys
		keyHandler := handler.NewAPIKeyHandler(deps.KeyStore)
		r.Post("/keys", keyHandler.Create)
		r.Get("/keys", keyHandler.List)
		r.Delete("/keys/{id}", keyHandler.Delete)

		// Hosts
		hostHandler := handler.NewHostHandler(deps.Directory, deps.Tasks, deps.Labels, deps.InFlight)
		r.Get("/hosts", hostHandler.List)
		r.Post("/hosts", hostHandler.Create)
		r.Put("/hosts/{hostname}/maintenance", hostHandler.UpdateMaintenance)

		// Tasks
		taskHandler := handler.NewTaskHandler(deps.Tasks)
		r.Get("/tasks", taskHandler.List)
	})

	return r
}
