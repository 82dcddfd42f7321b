// Package app wires the stores, the notification tracker and the services
// shared by the API server and nomadctl.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/internal/events"
	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	"github.com/NomadCrew/nomad-budget-backend/internal/store/postgres"
	"github.com/NomadCrew/nomad-budget-backend/internal/store/redisstore"
	"github.com/NomadCrew/nomad-budget-backend/internal/store/sqlite"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	expenseservice "github.com/NomadCrew/nomad-budget-backend/models/expense/service"
	notificationservice "github.com/NomadCrew/nomad-budget-backend/models/notification/service"
	reportservice "github.com/NomadCrew/nomad-budget-backend/models/report/service"
	tripservice "github.com/NomadCrew/nomad-budget-backend/models/trip/service"
	"github.com/NomadCrew/nomad-budget-backend/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the long-lived dependencies. Close releases them in reverse
// order of construction.
type App struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	WorkerPool    *services.WorkerPool
	UserDirectory *services.RedisUserDirectory
	Publisher     *events.RedisPublisher
	Tracker       *notification.Tracker

	Trips         *tripservice.TripManagementService
	Expenses      *expenseservice.ExpenseService
	Reports       *reportservice.ReportService
	Notifications notificationservice.NotificationService

	closeMarkers func()
	log          *zap.SugaredLogger
}

// New connects to Postgres and Redis and builds the services. reg receives
// all metrics; pass nil to leave them unregistered.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, log: logger.GetLogger()}

	pool, err := NewDatabasePool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.Redis = NewRedisClient(cfg.Redis, cfg.IsProduction())
	if cfg.Tracker.MarkerBackend == "" || cfg.Tracker.MarkerBackend == config.MarkerBackendRedis {
		if err := config.PingRedis(ctx, a.Redis); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	markers, closeMarkers, err := NewMarkerStore(cfg.Tracker, a.Redis)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to open marker store: %w", err)
	}
	a.closeMarkers = closeMarkers

	a.WorkerPool = services.NewWorkerPool(cfg.WorkerPool, reg)
	a.WorkerPool.Start()
	a.UserDirectory = services.NewRedisUserDirectory(a.Redis)

	tripStore := postgres.NewTripStore(pool)
	expenseStore := postgres.NewExpenseStore(pool)
	notificationStore := postgres.NewNotificationStore(pool)

	loc := cfg.Tracker.Location()
	a.Tracker = notification.NewTracker(markers, notificationStore,
		notification.WithSink(services.NewDispatchSink(a.WorkerPool, a.sinks(reg))),
		notification.WithLocation(loc),
		notification.WithDailyLimit(cfg.Tracker.DailyLimit),
		notification.WithLogger(logger.Named("notification")),
		notification.WithRegisterer(reg),
	)

	a.Publisher = events.NewRedisPublisher(a.Redis, events.Config{
		PublishTimeout:  time.Duration(cfg.EventService.PublishTimeoutSeconds) * time.Second,
		EventBufferSize: cfg.EventService.EventBufferSize,
		Registerer:      reg,
	})

	a.Trips = tripservice.NewTripManagementService(tripStore, expenseStore, a.Tracker, a.Publisher, loc, logger.Named("trips"))
	a.Expenses = expenseservice.NewExpenseService(tripStore, expenseStore, a.Tracker, a.Publisher, loc, logger.Named("expenses"))
	a.Reports = reportservice.NewReportService(tripStore, expenseStore, a.Tracker, a.Publisher, loc, logger.Named("reports"))
	a.Notifications = notificationservice.NewNotificationService(notificationStore, tripStore, a.Tracker, logger.Named("notifications"))
	return a, nil
}

// sinks delivers to the log always, and to the facade and email when configured.
func (a *App) sinks(reg prometheus.Registerer) notification.MultiSink {
	cfg := a.Config
	sinks := notification.MultiSink{notification.NewLogSink()}
	if cfg.Notification.Enabled {
		timeout := time.Duration(cfg.Notification.TimeoutSeconds) * time.Second
		sinks = append(sinks, notification.NewClient(cfg.Notification.APIUrl, cfg.Notification.APIKey,
			notification.WithHTTPClient(&http.Client{Timeout: timeout})))
	}
	if cfg.Email.Enabled {
		sinks = append(sinks, services.NewEmailSink(cfg.Email, a.UserDirectory, reg))
	}
	return sinks
}

// Close drains queued notifications and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.WorkerPool != nil {
		if err := a.WorkerPool.Shutdown(ctx); err != nil {
			a.log.Warnw("Worker pool shutdown incomplete", "error", err)
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Shutdown(ctx); err != nil {
			a.log.Warnw("Event publisher shutdown incomplete", "error", err)
		}
	}
	if a.closeMarkers != nil {
		a.closeMarkers()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// NewDatabasePool opens and pings a pgx pool.
func NewDatabasePool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := config.PostgresPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed for %s: %w", logger.MaskConnectionString(cfg.URL()), err)
	}
	return pool, nil
}

// NewRedisClient uses TLS when configured and always in production.
func NewRedisClient(cfg config.RedisConfig, production bool) *redis.Client {
	opts := config.RedisOptions(&cfg)
	if production && opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// NewMarkerStore selects the tracker's marker backend. Redis is the default.
func NewMarkerStore(cfg config.TrackerConfig, rdb *redis.Client) (notification.MarkerStore, func(), error) {
	switch cfg.MarkerBackend {
	case config.MarkerBackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.MarkerBackendMemory:
		return notification.NewMemoryMarkerStore(), func() {}, nil
	default:
		return redisstore.NewMarkerStore(rdb), func() {}, nil
	}
}
