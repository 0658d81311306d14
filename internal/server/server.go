// Package server assembles services, handlers and the fiber application.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/slicehouse/pizzeria/internal/api/http"
	"github.com/slicehouse/pizzeria/internal/api/http/handlers"
	"github.com/slicehouse/pizzeria/internal/auth"
	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/persistence"
	"github.com/slicehouse/pizzeria/internal/realtime"
	"github.com/slicehouse/pizzeria/internal/repository"
	"github.com/slicehouse/pizzeria/internal/service"
	"github.com/slicehouse/pizzeria/internal/worker"
)

// Infra carries already-connected backing services.
type Infra struct {
	Store       repository.UnitOfWork
	StoreDriver string
	// Redis is optional; without it revocations and fan-out stay in process.
	Redis   *persistence.Redis
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Server is the assembled HTTP application.
type Server struct {
	App      *fiber.App
	Metrics  *observability.Metrics
	Registry realtime.ConnectionRegistry

	notifications *service.NotificationService
	fanout        *realtime.RedisFanout
	logger        *zap.Logger
}

// New wires every service and route. Call Start before serving traffic.
func New(cfg *config.Config, infra Infra) *Server {
	logger := infra.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := infra.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	store := infra.Store

	hub := realtime.NewHub(logger, metrics)
	var (
		registry    realtime.ConnectionRegistry = hub
		fanout      *realtime.RedisFanout
		revocations auth.RevocationStore
	)
	if infra.Redis != nil && infra.Redis.Client != nil {
		revocations = auth.NewRedisRevocationStore(infra.Redis.Client)
		if cfg.Notification.Fanout == config.FanoutRedis {
			fanout = realtime.NewRedisFanout(hub, infra.Redis.Client, cfg.Notification.RedisChannel, logger)
			registry = fanout
		}
	} else {
		revocations = auth.NewMemoryRevocationStore()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL())

	authService := service.NewAuthService(service.AuthDependencies{
		Store:       store,
		Tokens:      tokens,
		Revocations: revocations,
		ResetTTL:    cfg.Auth.ResetTokenTTL(),
		EmailFrom:   cfg.Notification.EmailFrom,
		Logger:      logger,
		Now:         infra.Now,
	})
	catalogService := service.NewCatalogService(store)
	orderService := service.NewOrderService(service.OrderDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Now:        infra.Now,
	})
	promotionService := service.NewPromotionService(service.PromotionDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Now:        infra.Now,
	})
	loyaltyService := service.NewLoyaltyService(service.LoyaltyDependencies{
		Store:      store,
		Policy:     cfg.Loyalty.RedeemPolicy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		Store:         store,
		WebhookSecret: cfg.Payment.WebhookSecret,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Now:           infra.Now,
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Now:        infra.Now,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Registry:   registry,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Config:     cfg.Notification,
	})
	recommendationService := service.NewRecommendationService(store)

	authMiddleware := auth.NewAuthMiddleware(tokens, store.Repositories().Users, revocations, cfg.Auth.CookieName, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, infra.StoreDriver, infra.Redis),
		Users:           handlers.NewUsersHandler(authService, handlers.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}),
		Catalog:         handlers.NewCatalogHandler(catalogService),
		Orders:          handlers.NewOrdersHandler(orderService, promotionService),
		Payments:        handlers.NewPaymentsHandler(paymentService),
		Promotions:      handlers.NewPromotionsHandler(promotionService),
		Loyalty:         handlers.NewLoyaltyHandler(loyaltyService),
		Subscriptions:   handlers.NewSubscriptionsHandler(subscriptionService),
		Notifications:   handlers.NewNotificationsHandler(notificationService, registry, logger),
		Recommendations: handlers.NewRecommendationsHandler(recommendationService),
		AuthMiddleware:  authMiddleware,
		Metrics:         metrics,
		LoginRateLimit:  cfg.Auth.LoginRateLimit,
	})

	return &Server{
		App:           app,
		Metrics:       metrics,
		Registry:      registry,
		notifications: notificationService,
		fanout:        fanout,
		logger:        logger,
	}
}

// Start subscribes notification handlers and background delivery loops.
func (s *Server) Start(ctx context.Context) {
	var subscriber worker.Subscriber
	if s.fanout != nil {
		subscriber = s.fanout
	}
	worker.StartNotificationWorker(ctx, s.notifications, subscriber, s.logger)
}
