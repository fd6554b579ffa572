// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ticket-booking/cmd"
	"ticket-booking/internal/cache"
	"ticket-booking/internal/clock"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/pipeline"
	"ticket-booking/internal/reaper"
	"ticket-booking/internal/usecase"
	"ticket-booking/internal/wire"
	"ticket-booking/pkg/database"
	"ticket-booking/pkg/metrics"
	"ticket-booking/pkg/redisclient"
	"ticket-booking/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Apply schema migrations
	if err := database.Migrate(config.Database); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Availability cache is advisory; run without it if redis is down.
	var availabilityCache cache.AvailabilityCache
	redisClient, err := redisclient.InitRedis(config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, availability cache disabled", zap.Error(err))
		availabilityCache = cache.NewNoop()
	} else {
		defer redisClient.Close()
		availabilityCache = cache.NewRedisCache(redisClient, config.Redis.CacheTTL, logger)
	}

	// Pipeline queue backend
	var queue pipeline.Queue
	if config.Queue.Backend == "kafka" {
		queue, err = pipeline.NewKafkaQueue(config.Queue.Brokers, config.Queue.GroupID, logger)
		if err != nil {
			logger.Fatal("Failed to connect to kafka", zap.Error(err))
		}
	} else {
		queue = pipeline.NewMemoryQueue(config.Queue.BufferSize, logger)
	}
	defer queue.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	clk := clock.NewSystem()

	// Repositories and services
	repos := repository.NewRepository(db, logger)
	service := usecase.NewService(repos, availabilityCache, queue, clk, config, m, logger)

	// Pipeline worker with its stage handlers
	gateway := pipeline.NewBreakerGateway(pipeline.SimulatedGateway{}, logger)
	notifier := pipeline.NewLogNotifier(logger)
	worker := pipeline.NewWorker(queue, service.Reservation, config.Queue.MaxReceiveCount, m, logger)
	stages := pipeline.NewStageHandlers(service.Reservation, queue, gateway, notifier, clk, m, logger)
	stages.RegisterAll(worker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx)

	// Expiry reaper
	expiry := reaper.New(repos, availabilityCache, clk,
		config.Reaper.Interval, config.Reaper.BatchSize, m, logger)
	go expiry.Run(ctx)

	// Wire HTTP surface
	app := wire.Wiring(service, repos, registry, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}
