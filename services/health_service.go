package services

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dbPingAttempts = 3
	dbPingBackoff  = 100 * time.Millisecond
	poolNearFull   = 0.8
)

// DBPinger is the part of *pgxpool.Pool the health check needs.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PoolUsage reports acquired and maximum connections.
type PoolUsage func() (acquired, max int32)

type HealthService struct {
	db                DBPinger
	poolUsage         PoolUsage
	redisClient       *redis.Client
	version           string
	log               *zap.SugaredLogger
	startTime         time.Time
	activeConnections func() int
}

// NewHealthService builds the checker. redisClient may be nil when the marker
// store is not Redis-backed.
func NewHealthService(db DBPinger, redisClient *redis.Client, version string) *HealthService {
	return &HealthService{
		db:          db,
		redisClient: redisClient,
		version:     version,
		log:         logger.GetLogger(),
		startTime:   time.Now(),
	}
}

// SetPoolUsage enables the pool saturation check.
func (h *HealthService) SetPoolUsage(fn PoolUsage) {
	h.poolUsage = fn
}

// SetActiveConnectionsGetter exposes the live report subscriber count.
func (h *HealthService) SetActiveConnectionsGetter(getter func() int) {
	h.activeConnections = getter
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)

	components["database"] = h.checkDatabase(ctx)
	if h.redisClient != nil {
		components["redis"] = h.checkRedis(ctx)
	}
	if h.activeConnections != nil {
		components["live_reports"] = types.HealthComponent{
			Status:  types.HealthStatusUp,
			Details: fmt.Sprintf("%d active subscribers", h.activeConnections()),
		}
	}

	overall := types.HealthStatusUp
	for _, c := range components {
		switch c.Status {
		case types.HealthStatusDown:
			overall = types.HealthStatusDown
		case types.HealthStatusDegraded:
			if overall != types.HealthStatusDown {
				overall = types.HealthStatusDegraded
			}
		}
	}

	return types.HealthCheck{
		Status:     overall,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	var err error
	for attempt := 1; attempt <= dbPingAttempts; attempt++ {
		if err = h.db.Ping(ctx); err == nil {
			break
		}
		h.log.Warnw("Database ping failed", "attempt", attempt, "error", err)
		if attempt < dbPingAttempts {
			select {
			case <-ctx.Done():
				attempt = dbPingAttempts
			case <-time.After(dbPingBackoff):
			}
		}
	}
	if err != nil {
		h.log.Errorw("Database health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Database connection failed after multiple attempts",
		}
	}

	if h.poolUsage != nil {
		acquired, max := h.poolUsage()
		if max > 0 && float64(acquired)/float64(max) > poolNearFull {
			return types.HealthComponent{
				Status:  types.HealthStatusDegraded,
				Details: "Connection pool near capacity",
			}
		}
	}

	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}
