package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/slicehouse/pizzeria/internal/api/http/handlers"
	"github.com/slicehouse/pizzeria/internal/auth"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/observability"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Catalog         *handlers.CatalogHandler
	Orders          *handlers.OrdersHandler
	Payments        *handlers.PaymentsHandler
	Promotions      *handlers.PromotionsHandler
	Loyalty         *handlers.LoyaltyHandler
	Subscriptions   *handlers.SubscriptionsHandler
	Notifications   *handlers.NotificationsHandler
	Recommendations *handlers.RecommendationsHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
	// LoginRateLimit caps login attempts per IP per minute. Zero disables the limit.
	LoginRateLimit int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	authed := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireUser()}

	api.Post("/register", cfg.Users.Register)
	api.Post("/login", loginLimiter(cfg.LoginRateLimit), cfg.Users.Login)
	api.Post("/forgot-password", cfg.Users.ForgotPassword)
	api.Post("/reset-password", cfg.Users.ResetPassword)
	api.Post("/verify-email", cfg.Users.VerifyEmail)
	api.Post("/logout", append(authed, cfg.Users.Logout)...)
	api.Get("/user", append(authed, cfg.Users.Me)...)
	api.Patch("/user", append(authed, cfg.Users.UpdateProfile)...)

	catalogRoutes := map[string]domain.CatalogKind{
		"/pizza-bases":    domain.KindBase,
		"/pizza-sauces":   domain.KindSauce,
		"/pizza-cheeses":  domain.KindCheese,
		"/pizza-toppings": domain.KindTopping,
	}
	for path, kind := range catalogRoutes {
		api.Get(path, cfg.AuthMiddleware.Optional, cfg.Catalog.List(kind))
	}

	api.Get("/promotions", cfg.Promotions.ListActive)
	api.Post("/promotions/validate", cfg.Promotions.Validate)
	api.Get("/subscription-plans", cfg.Subscriptions.ListPlans)
	api.Post("/razorpay-webhook", cfg.Payments.Webhook)

	api.Get("/ws/notifications", cfg.AuthMiddleware.Handle, cfg.Notifications.Upgrade, cfg.Notifications.Stream())

	// Registered ahead of the customer group so admin paths authenticate once.
	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/orders", cfg.Orders.ListAll)
	admin.Patch("/orders/:id/status", cfg.Orders.UpdateStatus)
	admin.Patch("/orders/:id/tracking", cfg.Orders.UpdateTracking)
	admin.Post("/orders/:id/delivered", cfg.Orders.MarkDelivered)
	admin.Get("/inventory/low-stock", cfg.Catalog.LowStock)
	admin.Post("/inventory/:kind", cfg.Catalog.Create)
	admin.Patch("/inventory/:kind/:id", cfg.Catalog.Update)
	admin.Delete("/inventory/:kind/:id", cfg.Catalog.Delete)
	admin.Get("/promotions", cfg.Promotions.ListAll)
	admin.Post("/promotions", cfg.Promotions.Create)
	admin.Patch("/promotions/:id", cfg.Promotions.Update)
	admin.Delete("/promotions/:id", cfg.Promotions.Delete)
	admin.Post("/subscription-plans", cfg.Subscriptions.CreatePlan)

	user := api.Group("", authed...)
	user.Post("/orders", cfg.Orders.Create)
	user.Get("/orders", cfg.Orders.List)
	user.Get("/orders/:id", cfg.Orders.Get)
	user.Post("/orders/:id/cancel", cfg.Orders.Cancel)
	user.Post("/orders/:id/apply-promotion", cfg.Orders.ApplyPromotion)
	user.Post("/process-payment", cfg.Payments.Process)
	user.Get("/loyalty-points", cfg.Loyalty.Summary)
	user.Post("/loyalty-points/redeem", cfg.Loyalty.Redeem)
	user.Post("/subscribe", cfg.Subscriptions.Subscribe)
	user.Get("/user-subscriptions", cfg.Subscriptions.List)
	user.Post("/user-subscriptions/:id/cancel", cfg.Subscriptions.Transition(domain.ActionCancel))
	user.Post("/user-subscriptions/:id/pause", cfg.Subscriptions.Transition(domain.ActionPause))
	user.Post("/user-subscriptions/:id/resume", cfg.Subscriptions.Transition(domain.ActionResume))
	user.Get("/notifications", cfg.Notifications.List)
	user.Patch("/notifications/:id/read", cfg.Notifications.MarkRead)
	user.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	user.Get("/recommendations", cfg.Recommendations.Get)
}

func loginLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewTooManyRequests("too many login attempts, try again later")
		},
	})
}
