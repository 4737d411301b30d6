package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zero-wait/platform/internal/booking"
	"github.com/zero-wait/platform/internal/discharge"
	"github.com/zero-wait/platform/internal/hospital"
	"github.com/zero-wait/platform/internal/identity"
	"github.com/zero-wait/platform/internal/notification"
	"github.com/zero-wait/platform/internal/records"
	"github.com/zero-wait/platform/internal/shared/auth"
	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/database"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/logger"
	"github.com/zero-wait/platform/internal/shared/metrics"
	secmiddleware "github.com/zero-wait/platform/internal/shared/middleware"
	"github.com/zero-wait/platform/internal/store"
	"github.com/zero-wait/platform/internal/triage"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Store   store.Store
	DB      *database.DB
	Journal events.Journal
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env)
	app := &App{Config: cfg, Log: log}

	// Document store. A failed backend drops the process into limited mode
	// on the in-memory store rather than refusing to start.
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("postgres not available, running in limited mode with in-memory store")
			app.Store = store.NewMemory()
		} else {
			app.DB = db
			defer db.Close()
			if err := database.Migrate(ctx, db.Pool); err != nil {
				log.Warn().Err(err).Msg("migration failed")
			}
			app.Store = store.NewPostgres(db.Pool)
			log.Info().Msg("postgres document store initialized")
		}
	case "mongo":
		mongoStore, err := store.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("mongodb not available, running in limited mode with in-memory store")
			app.Store = store.NewMemory()
		} else {
			defer mongoStore.Close(ctx)
			app.Store = mongoStore
			log.Info().Msg("mongodb document store initialized")
		}
	default:
		app.Store = store.NewMemory()
		log.Info().Msg("in-memory document store initialized")
	}

	// Event journal (optional, publish-only)
	if cfg.EventLog.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventLog)
		if err != nil {
			log.Warn().Err(err).Msg("event store not available, running without event journal")
		} else {
			app.Journal = bus
			defer bus.Close()
			log.Info().Msg("event journal initialized")
		}
	}

	// Domain services
	identityService := identity.NewService(app.Store, cfg.Auth, log)

	var completer triage.Completer
	var triageHealth func(ctx context.Context) error
	if cfg.AI.Enabled {
		client := triage.NewClient(cfg.AI)
		completer = client
		triageHealth = client.Health
	}
	classifier := triage.NewClassifier(completer, app.Journal, rand.New(rand.NewSource(time.Now().UnixNano())), log)

	rankingEngine := hospital.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())))

	appointments := booking.NewAppointmentService(app.Store, app.Journal, log)
	dispatcher := booking.NewDispatcher(app.Store, app.Journal, booking.RealClock(), cfg.Dispatch, cfg.Geo, log)
	defer dispatcher.Shutdown()

	notifications := notification.NewService(app.Store, app.Journal, log)
	discharges := discharge.NewService(app.Store, notifications, app.Journal, log)

	rateLimiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBodySize(1 << 20))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)
	r.Use(rateLimiter.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", identity.NewHandler(identityService).Routes())

		r.Group(func(r chi.Router) {
			var staffGuard func(http.Handler) http.Handler
			if cfg.Server.Env == "production" {
				r.Use(auth.Middleware(cfg.Auth))
				staffGuard = auth.RequireRoles(auth.RoleDoctor, auth.RoleNurse, auth.RoleAdmin, auth.RolePharmacy)
			}

			r.Mount("/triage", triage.NewHandler(classifier, triageHealth).Routes())
			r.Mount("/hospitals", hospital.NewHandler(rankingEngine, cfg.Geo).Routes())
			r.Mount("/booking", booking.NewHandler(appointments, dispatcher).Routes())
			r.Mount("/notifications", notification.NewHandler(notifications).Routes())
			r.Mount("/discharges", discharge.NewHandler(discharges, staffGuard).Routes())
			r.Mount("/records", records.NewHandler(app.Store).Routes())
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		close(done)
	}()

	log.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Bool("ai", cfg.AI.Enabled).
		Msg("zero-wait care platform started")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}

	<-done
	log.Info().Msg("server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Zero-Wait Care Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.Store.Health(r.Context()); err != nil {
			checks["store"] = "not ready: " + err.Error()
		} else {
			checks["store"] = "ready"
		}

		if app.Journal != nil {
			if err := app.Journal.Health(); err != nil {
				checks["events"] = "not ready: " + err.Error()
			} else {
				checks["events"] = "ready"
			}
		} else {
			checks["events"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
