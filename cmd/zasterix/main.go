package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	zhttp "github.com/zasterix/zasterix/internal/adapter/http"
	"github.com/zasterix/zasterix/internal/adapter/mcp"
	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/catalog"
	"github.com/zasterix/zasterix/internal/config"
	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/tool"
	"github.com/zasterix/zasterix/internal/logger"
	"github.com/zasterix/zasterix/internal/middleware"
	"github.com/zasterix/zasterix/internal/port/a2a"
	"github.com/zasterix/zasterix/internal/resilience"
	"github.com/zasterix/zasterix/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"store_configured", cfg.Store.Configured(),
		"nats", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOtel, err := zotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := zotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	bus := connectBus(ctx, cfg)
	defer bus.close()

	caches, err := openCaches(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer caches.close()

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout).
		WithIgnore(func(err error) bool {
			return errors.Is(err, domain.ErrNotConfigured) || errors.Is(err, domain.ErrValidation)
		})
	jobs := service.NewBackgroundQueue(cfg.Queue, breaker, metrics)
	jobs.Start()
	defer jobs.Stop()

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()

	// --- Services ---
	tools := tool.DefaultRegistry()
	cat, err := catalog.Load(tools)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	scheme := cfg.Tools.DeepLinkScheme
	templateSvc := service.NewTemplateService(st.store, caches.templates, cfg.Cache.L2TTL)
	sessionSvc := service.NewSessionService(cat, st.store, jobs, tools, scheme)
	auditSvc := service.NewAuditService(st.store)
	coachSvc := service.NewCoachService(st.store, scheme)
	progressSvc := service.NewProgressService(sessionSvc, st.store)

	templateSvc.SetBroadcaster(hub)
	templateSvc.SetMetrics(metrics)
	templateSvc.SetHistory(auditSvc)
	sessionSvc.SetBroadcaster(hub)
	sessionSvc.SetMetrics(metrics)
	auditSvc.SetBroadcaster(hub)
	auditSvc.SetMetrics(metrics)
	coachSvc.SetBroadcaster(hub)
	coachSvc.SetMetrics(metrics)

	if q := bus.queue(); q != nil {
		templateSvc.SetQueue(q)
		sessionSvc.SetQueue(q)
		auditSvc.SetQueue(q)
		coachSvc.SetQueue(q)

		relay := service.NewEventRelay(q, hub)
		if err := relay.Start(ctx); err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer relay.Stop()
	}

	if cfg.Server.SeedTemplates && st.writable() {
		n, err := templateSvc.Seed(ctx)
		if err != nil {
			slog.Warn("template seeding failed", "error", err)
		} else {
			slog.Info("templates seeded", "created", n)
		}
	}

	// --- HTTP ---
	handlers := &zhttp.Handlers{
		Sessions:       sessionSvc,
		Templates:      templateSvc,
		Audit:          auditSvc,
		Progress:       progressSvc,
		Coach:          coachSvc,
		Tools:          tools,
		DeepLinkScheme: scheme,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst).WithKey(middleware.KeyByUser)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()
	stopSweep := sessionSvc.StartSweep(cfg.Sessions.SweepInterval, cfg.Sessions.IdleTTL)
	defer stopSweep()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.IdentityFromHeaders)
	r.Use(zhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(zhttp.SecurityHeaders)
	r.Use(zhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(zotel.HTTPMiddleware(cfg.Telemetry.ServiceName))

	// Health endpoint with store banner state
	r.Get("/health", healthHandler(st, bus, hub, jobs))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// A2A discovery and tasks
	a2a.NewHandler(cfg.Server.PublicURL, templateSvc).MountRoutes(r)

	// MCP streamable HTTP endpoint
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Name:    "zasterix",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{Templates: templateSvc, Modules: sessionSvc})
		r.Handle("/mcp", mcpSrv.Handler())
		slog.Info("mcp server enabled", "auth", cfg.MCP.APIKey != "")
	}

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(middleware.Idempotency(caches.idempotency, cfg.Idempotency.TTL))
		zhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health. A
// missing store is reported as "not_configured" while the service stays up.
func healthHandler(st *storeHandle, bus *busHandle, hub *ws.Hub, jobs *service.BackgroundQueue) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		Store       string `json:"store"`
		NATS        string `json:"nats"`
		Connections int    `json:"ws_connections"`
		JobsPending int    `json:"jobs_pending"`
		JobsDropped int64  `json:"jobs_dropped"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Status:      "ok",
			Version:     version,
			Store:       st.state(r.Context()),
			NATS:        bus.state(),
			Connections: hub.ConnectionCount(),
			JobsPending: jobs.Pending(),
			JobsDropped: jobs.Dropped(),
		}
		if status.Store == storeUnavailable {
			status.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
