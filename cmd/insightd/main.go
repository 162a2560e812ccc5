package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/opsboard/usage_insights/backend/internal/app"
	"github.com/opsboard/usage_insights/backend/internal/config"
	"github.com/opsboard/usage_insights/backend/internal/database"
	"github.com/opsboard/usage_insights/backend/internal/httpserver"
	"github.com/opsboard/usage_insights/backend/internal/redisclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := database.RunMigrations(ctx, cfg.Database); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	dbPool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer dbPool.Close()

	redisClient := newOptionalRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	container, err := app.NewContainer(ctx, cfg, dbPool, redisClient)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	if container.Observability != nil {
		defer container.Observability.Shutdown(ctx)
	}

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	if err := server.Listen(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server stopped: %v", err)
	}
}

func newOptionalRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		log.Print("redis url not set, report cache disabled")
		return nil
	}
	client := redisclient.New(cfg.Redis)
	if err := redisclient.Ping(ctx, client); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	return client
}
