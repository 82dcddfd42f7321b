package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/db"
	"github.com/NomadCrew/nomad-budget-backend/handlers"
	"github.com/NomadCrew/nomad-budget-backend/internal/app"
	"github.com/NomadCrew/nomad-budget-backend/internal/storage"
	"github.com/NomadCrew/nomad-budget-backend/internal/websocket"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/middleware"
	"github.com/NomadCrew/nomad-budget-backend/pkg/pexels"
	"github.com/NomadCrew/nomad-budget-backend/router"
	"github.com/NomadCrew/nomad-budget-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// @title NomadCrew Budget API
// @version 1.0
// @description Trip budgets, expenses, reports and budget notifications.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reg := prometheus.DefaultRegisterer
	core, err := app.New(ctx, cfg, reg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if cfg.Storage.Enabled() {
		covers, err := storage.NewCoverStorage(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize cover storage: %v", err)
		}
		core.Trips.SetCoverStore(covers)
	}
	if cfg.ExternalServices.PexelsAPIKey != "" {
		core.Trips.SetPexelsClient(pexels.NewClient(cfg.ExternalServices.PexelsAPIKey))
	}

	reminders := services.NewReminderScheduler(core.Notifications,
		time.Duration(cfg.Tracker.ReminderIntervalMinutes)*time.Minute)
	reminders.Start(ctx)

	// Auth
	jwtValidator, err := middleware.NewJWTValidator(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize JWT validator: %v", err)
	}
	var refresher handlers.TokenRefresher
	if r, err := handlers.NewSupabaseRefresher(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseAnonKey); err != nil {
		log.Warnw("Token refresh disabled", "error", err)
	} else {
		refresher = r
	}

	// Live reports
	hubConfig := websocket.DefaultHubConfig()
	hub := websocket.NewHub(hubConfig)

	healthService := services.NewHealthService(core.Pool, core.Redis, cfg.Server.Version)
	healthService.SetPoolUsage(func() (int32, int32) {
		stat := core.Pool.Stat()
		return stat.AcquiredConns(), stat.MaxConns()
	})
	healthService.SetActiveConnectionsGetter(hub.GetConnectionCount)

	r := router.SetupRouter(router.Dependencies{
		Config:              cfg,
		JWTValidator:        jwtValidator,
		UserRecorder:        core.UserDirectory,
		RateLimiter:         services.NewRateLimitService(core.Redis),
		AuthHandler:         handlers.NewAuthHandler(refresher),
		TripHandler:         handlers.NewTripHandler(core.Trips, cfg.Storage.MaxUploadBytes, logger.Named("http")),
		ExpenseHandler:      handlers.NewExpenseHandler(core.Expenses, logger.Named("http")),
		ReportHandler:       handlers.NewReportHandler(core.Reports),
		NotificationHandler: handlers.NewNotificationHandler(core.Notifications, logger.Named("http")),
		UserHandler:         handlers.NewUserHandler(core.Trips, logger.Named("http")),
		HealthHandler:       handlers.NewHealthHandler(healthService),
		LiveReportHandler:   websocket.NewHandler(hub, core.Reports, &cfg.Server, hubConfig),
		Logger:              log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	reminders.Stop()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Live report streams did not close cleanly", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	core.Close(shutdownCtx)
	log.Info("Server exited")
}
