package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/opsboard/usage_insights/backend/internal/cache"
	"github.com/opsboard/usage_insights/backend/internal/config"
	"github.com/opsboard/usage_insights/backend/internal/observability"
	"github.com/opsboard/usage_insights/backend/internal/reporting"
	"github.com/opsboard/usage_insights/backend/internal/store"
)

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config            *config.Config
	DBPool            *pgxpool.Pool
	Redis             *redis.Client
	Store             store.Store
	Reports           *reporting.Service
	ReportCache       *cache.ReportCache
	Observability     *observability.Provider
	ReportingLocation *time.Location
}

// NewContainer builds a dependency container from the provided
// primitives. The Redis client is optional; without it the report
// cache is disabled and every request hits the store.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("db pool is required")
	}

	locName := strings.TrimSpace(cfg.Reporting.Timezone)
	if locName == "" {
		locName = "UTC"
	}
	reportingLoc, err := time.LoadLocation(locName)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone: %w", err)
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	st := store.NewPostgres(pool)
	reports := reporting.NewService(st, reportingLoc)
	reports.OnSkippedEvents = obsProvider.RecordSkippedEvents

	var reportCache *cache.ReportCache
	if redisClient != nil {
		reportCache = cache.NewReportCache(redisClient, cfg.Reporting.CacheTTL)
	}

	return &Container{
		Config:            cfg,
		DBPool:            pool,
		Redis:             redisClient,
		Store:             st,
		Reports:           reports,
		ReportCache:       reportCache,
		Observability:     obsProvider,
		ReportingLocation: reportingLoc,
	}, nil
}

// ReportingLoc returns the configured reporting timezone location (defaults to UTC).
func (c *Container) ReportingLoc() *time.Location {
	if c != nil && c.ReportingLocation != nil {
		return c.ReportingLocation
	}
	return time.UTC
}

// Close releases resources owned by the container.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Observability != nil {
		if err := c.Observability.Shutdown(ctx); err != nil {
			return err
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			return err
		}
	}
	if c.DBPool != nil {
		c.DBPool.Close()
	}
	return nil
}
