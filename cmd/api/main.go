package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brickfield/brickfield-backend/api/routes"
	"github.com/brickfield/brickfield-backend/internal/broadcast"
	"github.com/brickfield/brickfield-backend/internal/checkout"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/payments"
	"github.com/brickfield/brickfield-backend/internal/pricing"
	"github.com/brickfield/brickfield-backend/internal/products"
	"github.com/brickfield/brickfield-backend/internal/refunds"
	stripewebhook "github.com/brickfield/brickfield-backend/internal/webhooks/stripe"
	"github.com/brickfield/brickfield-backend/internal/zones"
	"github.com/brickfield/brickfield-backend/pkg/config"
	"github.com/brickfield/brickfield-backend/pkg/db"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/maps"
	"github.com/brickfield/brickfield-backend/pkg/metrics"
	"github.com/brickfield/brickfield-backend/pkg/migrate"
	"github.com/brickfield/brickfield-backend/pkg/redis"
	"github.com/brickfield/brickfield-backend/pkg/stripe"
	"github.com/brickfield/brickfield-backend/pkg/types"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	pricingRepo, err := pricing.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing repository", err)
		os.Exit(1)
	}
	zonesRepo, err := zones.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create zones repository", err)
		os.Exit(1)
	}
	zonesService, err := zones.NewService(zonesRepo, types.LatLng{Lat: cfg.Warehouse.Lat, Lng: cfg.Warehouse.Lng})
	if err != nil {
		logg.Error(context.Background(), "failed to create zones service", err)
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

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(dbClient, ordersRepo, inventoryService, publisher, notificationsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	gateway, err := payments.NewStripeGateway(stripeClient, cfg.Stripe.Currency)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	var geocoder checkout.Geocoder
	if cfg.Geocoding.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Geocoding.APIKey)
		if err != nil {
			logg.Error(context.Background(), "failed to create geocoding client", err)
			os.Exit(1)
		}
		geocoder = mapsClient
	} else {
		logg.Warn(context.Background(), "geocoding api key not set, checkout requires explicit coordinates")
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		productsRepo,
		pricingRepo,
		inventoryService,
		ordersRepo,
		zonesService,
		geocoder,
		gateway,
		publisher,
		notificationsService,
		cfg.Checkout.HoldingPeriod,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	refundsRepo, err := refunds.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds repository", err)
		os.Exit(1)
	}
	refundsService, err := refunds.NewService(dbClient, refundsRepo, ordersRepo, gateway, notificationsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookEventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:  ordersService,
		Guard:   webhookGuard,
		Metrics: metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			productsRepo,
			pricingRepo,
			zonesRepo,
			zonesService,
			inventoryService,
			checkoutService,
			ordersService,
			refundsService,
			notificationsService,
			stripeClient,
			stripeWebhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
