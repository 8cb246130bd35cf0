package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brickfield/brickfield-backend/api/controllers"
	webhookcontrollers "github.com/brickfield/brickfield-backend/api/controllers/webhooks"
	"github.com/brickfield/brickfield-backend/api/middleware"
	checkoutsvc "github.com/brickfield/brickfield-backend/internal/checkout"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/pricing"
	"github.com/brickfield/brickfield-backend/internal/products"
	"github.com/brickfield/brickfield-backend/internal/refunds"
	stripewebhook "github.com/brickfield/brickfield-backend/internal/webhooks/stripe"
	"github.com/brickfield/brickfield-backend/internal/zones"
	"github.com/brickfield/brickfield-backend/pkg/config"
	"github.com/brickfield/brickfield-backend/pkg/db"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/redis"
	"github.com/brickfield/brickfield-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	productsRepo products.Repository,
	pricingRepo pricing.Repository,
	zonesRepo zones.Repository,
	zonesService zones.Service,
	inventoryService inventory.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	refundsService refunds.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbClient, redisClient, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	// Public storefront reads.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(productsRepo, logg))
		r.Get("/{productID}", controllers.GetProduct(productsRepo, logg))
	})
	r.Get("/api/v1/orders/track/{orderNumber}", controllers.TrackOrder(ordersService, logg))
	r.Get("/api/v1/zones/quote", controllers.QuoteDeliveryZone(zonesService, logg))

	// Checkout is shared by guests and signed-in customers.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/api/v1/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/api/v1/checkout/quote", controllers.QuoteCheckout(checkoutService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Get("/{orderID}/history", controllers.OrderHistory(ordersService, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/{orderID}/refund-request", controllers.RequestRefund(ordersService, refundsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(ordersService, logg))
				r.Get("/{orderID}", controllers.AdminGetOrder(ordersService, logg))
				r.Patch("/{orderID}/status", controllers.AdminAdvanceOrder(ordersService, logg))
				r.Post("/{orderID}/cancel", controllers.AdminCancelOrder(ordersService, logg))
			})

			r.Route("/refunds", func(r chi.Router) {
				r.Get("/", controllers.AdminListPendingRefunds(refundsService, logg))
				r.Post("/{requestID}/approve", controllers.AdminApproveRefund(refundsService, logg))
				r.Post("/{requestID}/reject", controllers.AdminRejectRefund(refundsService, logg))
			})

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", controllers.AdminListDiscountTiers(pricingRepo, logg))
				r.Post("/", controllers.AdminCreateDiscountTier(pricingRepo, logg))
				r.Put("/{tierID}", controllers.AdminUpdateDiscountTier(pricingRepo, logg))
				r.Delete("/{tierID}", controllers.AdminDeleteDiscountTier(pricingRepo, logg))
			})

			r.Route("/zones", func(r chi.Router) {
				r.Get("/", controllers.AdminListZones(zonesRepo, logg))
				r.Post("/", controllers.AdminCreateZone(zonesRepo, logg))
				r.Put("/{zoneID}", controllers.AdminUpdateZone(zonesRepo, logg))
				r.Delete("/{zoneID}", controllers.AdminDeleteZone(zonesRepo, logg))
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/{productID}", controllers.AdminGetInventory(inventoryService, logg))
				r.Put("/{productID}", controllers.AdminSetStock(inventoryService, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(productsRepo, logg))
				r.Patch("/{productID}", controllers.AdminUpdateProduct(productsRepo, logg))
				r.Get("/low-stock", controllers.LowStockReport(productsRepo, logg))
			})
		})
	})

	return r
}
