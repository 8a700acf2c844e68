package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"telereach/config"
	"telereach/delay"
	"telereach/filter"
	"telereach/middleware"
	"telereach/pool"
	"telereach/queue"
	"telereach/routes"
	"telereach/transport"
	"telereach/worker"
)

func main() {
	logger := log.New(os.Stdout, "TELEREACH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	// Initialize database and Redis connections
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.ConnectRedis(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine plumbing
	taskQueue := queue.New(config.RDB, config.AppConfig.StreamKey, config.AppConfig.ConsumerGroup)
	dialer := transport.NewGatewayDialer(config.AppConfig.GatewayURL, config.AppConfig.GatewayTimeout)
	clientPool := pool.New(config.DB, dialer)
	filters := filter.NewEvaluator(config.RDB)
	delays := delay.NewPolicy(config.RDB, nil)

	// Dispatch workers: competing consumers in one group, each with a
	// distinct consumer identity.
	for i := 0; i < config.AppConfig.WorkerCount; i++ {
		consumer := fmt.Sprintf("worker_%s", uuid.NewString()[:8])
		dispatcher := worker.NewDispatcher(config.DB, taskQueue, clientPool, filters, delays, consumer, nil)
		go dispatcher.Start(ctx)
	}

	// Scheduler: exactly one instance across the deployment.
	if config.AppConfig.SchedulerEnabled {
		drip := worker.NewDripProcessor(config.DB, clientPool)
		warmup := worker.NewWarmupRunner(config.DB, clientPool, nil)
		scheduler := worker.NewScheduler(config.DB, taskQueue, drip, warmup, config.AppConfig.SchedulerInterval, nil)
		go scheduler.Start(ctx)
	}

	// Collaborator API
	app := fiber.New()
	app.Use(middleware.CORS())
	routes.SetupRoutes(app, config.DB, taskQueue, filters, delays)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
