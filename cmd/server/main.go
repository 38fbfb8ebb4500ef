package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bcnelson/host-dashboard/internal/api"
	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/config"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/logging"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/bcnelson/host-dashboard/internal/storage/memory"
	"github.com/bcnelson/host-dashboard/internal/storage/redis"
	"github.com/bcnelson/host-dashboard/internal/storage/sql"
	"github.com/bcnelson/host-dashboard/internal/task"
	"github.com/bcnelson/host-dashboard/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	// Initialize cluster client (or file shim for local runs)
	var directory cluster.Directory
	if cfg.UseFileShim() {
		log.Info().Str("file", cfg.Cluster.FileShim).Msg("Using file shim for cluster host API")
		directory = cluster.NewFileShim(cfg.Cluster.FileShim)
	} else {
		client, err := cluster.New(cluster.Options{
			BaseURL:      cfg.Cluster.APIURL,
			Token:        cfg.Cluster.Token,
			ClientID:     cfg.Cluster.ClientID,
			ClientSecret: cfg.Cluster.ClientSecret,
			TokenURL:     cfg.Cluster.TokenURL,
			Timeout:      cfg.Cluster.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cluster client")
		}
		directory = client
	}

	labels := i18n.Default()
	if cfg.I18n.Catalog != "" {
		labels, err = i18n.Load(cfg.I18n.Catalog)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.I18n.Catalog).Msg("Failed to load label catalog")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tasks := task.NewWrapper(store,
		task.WithMetrics(task.NewMetrics(reg)),
		task.WithHistory(cfg.Tasks.History),
	)

	if cfg.Auth.BootstrapAPIKey != "" {
		log.Warn().Msg("Bootstrap API key is set; it is accepted until the first API key is created")
	}

	var oidcComponents *web.OIDCComponents
	if cfg.OIDC.Enabled {
		oidcComponents, err = setupOIDC(ctx, &cfg.OIDC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize OIDC")
		}
		log.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC login enabled")
	}

	// Create router
	router := api.NewRouter(api.Deps{
		Deps: web.Deps{
			Directory: directory,
			Tasks:     tasks,
			Labels:    labels,
			Keys:      auth.NewKeyVerifier(store, cfg.Auth.BootstrapAPIKey),
			OIDC:      oidcComponents,
		},
		KeyStore: store,
		Gatherer: reg,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr()).Msg("Starting host dashboard")

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStorage opens the SQL database for API keys and the configured task store.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	switch cfg.Tasks.Store {
	case config.TaskStoreMemory:
		return storage.Compose(db, memory.New(), db.Close), nil
	case config.TaskStoreRedis:
		rs, err := redis.New(ctx, redis.Options{
			Addr:     cfg.Tasks.RedisAddr,
			Password: cfg.Tasks.RedisPassword,
			DB:       cfg.Tasks.RedisDB,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Str("addr", cfg.Tasks.RedisAddr).Msg("Keeping task history in Redis")
		return storage.Compose(db, rs, db.Close, rs.Close), nil
	default:
		return db, nil
	}
}

func setupOIDC(ctx context.Context, cfg *config.OIDCConfig) (*web.OIDCComponents, error) {
	provider, err := auth.NewOIDCProvider(ctx, auth.OIDCOptions{
		IssuerURL:      cfg.IssuerURL,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		RedirectURL:    cfg.RedirectURL,
		Scopes:         cfg.GetScopes(),
		AllowedDomains: cfg.GetAllowedDomains(),
	})
	if err != nil {
		return nil, err
	}

	key, err := cfg.GetSessionSecretBytes()
	if err != nil {
		return nil, err
	}
	secure := strings.HasPrefix(cfg.RedirectURL, "https://")

	sessions, err := auth.NewSessionManager(key, cfg.SessionDuration, secure)
	if err != nil {
		return nil, err
	}
	states, err := auth.NewStateStore(key, secure)
	if err != nil {
		return nil, err
	}

	return &web.OIDCComponents{
		Provider:       provider,
		SessionManager: sessions,
		StateStore:     states,
		LogoutURL:      cfg.LogoutURL,
	}, nil
}
