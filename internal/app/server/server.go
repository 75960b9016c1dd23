package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lms/internal/domain/audit"
	"lms/internal/domain/calendar"
	"lms/internal/domain/directory"
	"lms/internal/domain/leave"
	"lms/internal/domain/policy"
	"lms/internal/platform/config"
	"lms/internal/platform/db"
	"lms/internal/platform/jobs"
	"lms/internal/platform/metrics"
	"lms/internal/transport/http/api"
	adminhandler "lms/internal/transport/http/handlers/admin"
	leavehandler "lms/internal/transport/http/handlers/leave"
	"lms/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	policyStore := policy.NewStore(pool)
	calendarStore := calendar.NewStore(pool)
	directoryStore := directory.NewStore(pool)
	auditService := audit.New(pool)
	leaveService := leave.NewService(leave.NewStore(pool), policyStore, calendarStore, directoryStore)
	leaveService.Audit = auditService

	collector := metrics.New()

	jobService := jobs.New(pool, leaveService)
	jobService.Start(ctx, cfg.AccrualInterval)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		leaveHandler := leavehandler.NewHandler(leaveService)
		leaveHandler.RegisterRoutes(r)

		adminHandler := adminhandler.NewHandler(leaveService, policyStore, calendarStore, directoryStore, auditService, collector)
		adminHandler.RegisterRoutes(r)
	})

	log.Printf("leave server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
