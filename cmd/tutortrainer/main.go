package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/caadev/tutortrainer/internal/adapter/export"
	tthttp "github.com/caadev/tutortrainer/internal/adapter/http"
	"github.com/caadev/tutortrainer/internal/adapter/memory"
	ttnats "github.com/caadev/tutortrainer/internal/adapter/nats"
	"github.com/caadev/tutortrainer/internal/adapter/natskv"
	"github.com/caadev/tutortrainer/internal/adapter/openai"
	ttotel "github.com/caadev/tutortrainer/internal/adapter/otel"
	"github.com/caadev/tutortrainer/internal/adapter/postgres"
	"github.com/caadev/tutortrainer/internal/adapter/ristretto"
	"github.com/caadev/tutortrainer/internal/adapter/tiered"
	"github.com/caadev/tutortrainer/internal/adapter/ws"
	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/logger"
	"github.com/caadev/tutortrainer/internal/port/cache"
	"github.com/caadev/tutortrainer/internal/port/database"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
	"github.com/caadev/tutortrainer/internal/resilience"
	"github.com/caadev/tutortrainer/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
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
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"log_level", cfg.Logging.Level,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := ttotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := ttotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Storage ---
	var store database.Store
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		slog.Info("postgres connected")

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")

		store = postgres.NewStore(pool)
	case "memory":
		slog.Warn("using in-memory storage, data will not survive restarts")
		store = memory.NewStore()
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// --- NATS: events and L2 cache ---
	var queue messagequeue.Queue
	var transcriptCache cache.Cache

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("ristretto: %w", err)
	}
	defer l1.Close()

	natsQueue, err := ttnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled and cache reduced to L1", "error", err)
		transcriptCache = l1
	} else {
		defer func() { _ = natsQueue.Close() }()
		queue = natsQueue

		kv, err := natsQueue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		transcriptCache = tiered.New(l1, natskv.New(kv), cfg.Cache.TTL)
	}

	// --- Assistant client ---
	ai := openai.NewClient(cfg.Assistants.URL, cfg.Assistants.APIKey)
	ai.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	hub := ws.NewHub()
	convSvc := service.NewConversationService(store, transcriptCache, queue, cfg.Cache.TTL)
	exporter, err := export.New(cfg.Export.Directory)
	if err != nil {
		return fmt.Errorf("exporter: %w", err)
	}

	handlers := &tthttp.Handlers{
		Identity:      service.NewIdentityService(store),
		Conversations: convSvc,
		Orchestrator:  service.NewOrchestratorService(store, ai, transcriptCache, hub, queue, metrics, cfg.Assistants),
		Evaluations:   service.NewEvaluationService(store, ai, queue, cfg.Assistants),
		Exports:       service.NewExportService(store, exporter, convSvc),
		Staff:         cfg.Staff,
	}

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(tthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tthttp.RequestID)
	r.Use(tthttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(ttotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/ws", hub.HandleWS)
	tthttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Run polling can hold a request open for the full run timeout.
		WriteTimeout: cfg.Assistants.RunTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
