package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brickfield/brickfield-backend/internal/broadcast"
	"github.com/brickfield/brickfield-backend/internal/cron"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/products"
	"github.com/brickfield/brickfield-backend/pkg/config"
	"github.com/brickfield/brickfield-backend/pkg/db"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/metrics"
	"github.com/brickfield/brickfield-backend/pkg/migrate"
	"github.com/brickfield/brickfield-backend/pkg/redis"
)

const lockKeyFormat = "bf:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	productsRepo, err := products.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create products repository", err)
		os.Exit(1)
	}
	inventoryRepo, err := inventory.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory repository", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	publisher, err := broadcast.NewPublisher(redisClient, cfg.Checkout.StockEventsChannel, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock event publisher", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(dbClient, orders.NewRepository(dbClient.DB()), inventoryService, publisher, notificationsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	holdSweep, err := cron.NewHoldSweepJob(cron.HoldSweepJobParams{
		Logger:    logg,
		DB:        dbClient,
		Inventory: inventoryService,
		Products:  productsRepo,
		Publisher: publisher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold sweep job", err)
		os.Exit(1)
	}
	pendingSweep, err := cron.NewPendingOrderSweepJob(cron.PendingOrderSweepJobParams{
		Logger: logg,
		Orders: ordersService,
		TTL:    cfg.Checkout.PendingOrderTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending order sweep job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(holdSweep, pendingSweep),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
