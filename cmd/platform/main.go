package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ebioscore/platform/internal/alert"
	"github.com/ebioscore/platform/internal/appointment"
	"github.com/ebioscore/platform/internal/audit"
	"github.com/ebioscore/platform/internal/billing"
	"github.com/ebioscore/platform/internal/diagnosis"
	"github.com/ebioscore/platform/internal/legacy"
	"github.com/ebioscore/platform/internal/medication"
	"github.com/ebioscore/platform/internal/patient"
	"github.com/ebioscore/platform/internal/shared/auth"
	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/ebioscore/platform/internal/shared/database"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/ebioscore/platform/internal/shared/logging"
	"github.com/ebioscore/platform/internal/shared/metrics"
	secmiddleware "github.com/ebioscore/platform/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *database.DB
	Bus    events.EventBus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &App{Config: cfg, Log: log}

	// Database is optional so the API can come up in limited mode on
	// a workstation without Postgres.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Warn("database not available, running in limited mode", zap.Error(err))
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			log.Warn("migration failed", zap.Error(err))
		}
	}

	// Event bus is optional too; without it state changes are simply
	// not audited or streamed.
	bus, transport, err := events.NewEventBus(ctx, cfg.KurrentDB, log)
	if err != nil {
		log.Warn("event store not available, running without event streaming", zap.Error(err))
	} else {
		app.Bus = bus
		defer bus.Close()
		log.Info("event bus connected", zap.String("transport", transport))
	}

	// Alert delivery workers
	delivery := alert.NewDeliveryService(cfg.Alerts, log)
	delivery.Register("log", alert.NewLogProvider(log))
	if err := delivery.Start(ctx); err != nil {
		log.Warn("alert delivery service failed to start", zap.Error(err))
	} else {
		defer delivery.Stop()
	}

	// One-shot legacy HIS import at startup
	if cfg.Legacy.Enabled && app.DB != nil {
		importer := legacy.NewImporter(cfg.Legacy, app.DB.Pool, log)
		if err := importer.Connect(ctx); err != nil {
			log.Warn("legacy HIS not reachable, skipping import", zap.Error(err))
		} else {
			if _, err := importer.Run(ctx); err != nil {
				log.Error("legacy import failed", zap.Error(err))
			}
			importer.Close()
		}
	}

	rateLimiter := secmiddleware.NewIPRateLimiter(100, 200)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.BodyLimit(1 << 20))
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		if app.DB != nil {
			patientRepo := patient.NewRepository(app.DB.Pool)
			patientHandler := patient.NewHandler(patientRepo, app.Bus, cfg.Codes)
			r.Mount("/patients", patientHandler.Routes())

			diagnosisRepo := diagnosis.NewRepository(app.DB.Pool)
			diagnosisHandler := diagnosis.NewHandler(diagnosisRepo, app.Bus)
			r.Mount("/diagnoses", diagnosisHandler.Routes())

			medicationRepo := medication.NewRepository(app.DB.Pool)
			medicationHandler := medication.NewHandler(medicationRepo, app.Bus)
			r.Mount("/medications", medicationHandler.Routes())

			billingRepo := billing.NewRepository(app.DB.Pool)
			billingHandler := billing.NewHandler(billingRepo, app.Bus)
			r.Mount("/receipts", billingHandler.Routes())

			appointmentRepo := appointment.NewRepository(app.DB.Pool)
			appointmentHandler := appointment.NewHandler(appointmentRepo, app.Bus)
			r.Mount("/appointments", appointmentHandler.Routes())

			alertRepo := alert.NewRepository(app.DB.Pool)
			alertHandler := alert.NewHandler(alertRepo, app.Bus, delivery, log)
			r.Mount("/alerts", alertHandler.Routes())

			// Audit trail: subscribe to everything, persist to Postgres
			if app.Bus != nil {
				recorder := audit.NewRecorder(app.DB.Pool, app.Bus, log)
				if err := recorder.Start(ctx); err != nil {
					log.Warn("audit recorder failed to start", zap.Error(err))
				} else {
					log.Info("audit recorder started")
				}
				auditHandler := audit.NewHandler(recorder)
				r.Mount("/audit", auditHandler.Routes())
			}
		}
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
		log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("hospital administration platform started",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("database", app.DB != nil),
		zap.Bool("events", app.Bus != nil))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "eBios Hospital Administration Platform",
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

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
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
