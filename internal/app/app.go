package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/omnistore/server/internal/module/order"
	"github.com/omnistore/server/internal/module/payment"
	"github.com/omnistore/server/internal/module/payment/provider"
	"github.com/omnistore/server/internal/shared/cache"
	"github.com/omnistore/server/internal/shared/config"
	"github.com/omnistore/server/internal/shared/database"
	"github.com/omnistore/server/internal/shared/events"
	"github.com/omnistore/server/internal/shared/logger"
	"github.com/omnistore/server/internal/shared/metrics"
	"github.com/omnistore/server/internal/shared/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the assembled application.
type App struct {
	cfg    *config.Config
	server *http.Server
	db     *gorm.DB
	redis  redis.UniversalClient
	log    *logger.Logger
	zlog   *zap.Logger
}

// New assembles the application from configuration.
func New(cfg *config.Config) (*App, error) {
	appLog := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	zlog, err := logger.NewZapLogger(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(&order.Order{}, &payment.Payment{}, &payment.StripeWebhookEvent{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	m := metrics.New("omnistore")
	bus := events.NewBus()
	registerEventLogging(bus, zlog)

	// Orders
	orderRepo := order.NewRepository(db)
	orderService := order.NewService(orderRepo, m, zlog.Named("order"))
	orderHandler := order.NewHandler(orderService)

	// Payments
	gateway := provider.NewCircuitGateway(
		provider.NewStripeGateway(&provider.StripeConfig{
			APIKey:        cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Timeout:       cfg.Stripe.Timeout,
		}),
		provider.DefaultBreakerConfig(),
	)
	orders := newOrderAccessor(orderService)
	paymentRepo := payment.NewRepository(db)
	paymentService := payment.NewService(
		paymentRepo,
		orders,
		gateway,
		nil, // production outcome source, built from config
		cache.NewRedisLocker(redisClient),
		bus,
		m,
		zlog.Named("payment"),
		payment.Options{
			MockSuccessRate: cfg.Payment.MockSuccessRate,
			IntentLockTTL:   cfg.Payment.IntentLockTTL,
			Currency:        cfg.Payment.Currency,
		},
	)
	paymentHandler := payment.NewHandler(paymentService, orders)
	webhookHandler := payment.NewWebhookHandler(paymentService, m, zlog.Named("webhook"))

	router := buildRouter(cfg, m, zlog, orderHandler, paymentHandler, webhookHandler)

	return &App{
		cfg: cfg,
		server: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		db:    db,
		redis: redisClient,
		log:   appLog,
		zlog:  zlog,
	}, nil
}

func buildRouter(
	cfg *config.Config,
	m *metrics.Metrics,
	zlog *zap.Logger,
	orderHandler *order.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(zlog))
	router.Use(cors.Default())
	router.Use(middleware.Metrics(m))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Auth.JWTSecret))
	{
		orderHandler.RegisterRoutes(api)
		paymentHandler.RegisterRoutes(api)
	}

	// Webhooks authenticate via signature, not bearer token.
	webhooks := router.Group("/webhooks")
	webhookHandler.RegisterRoutes(webhooks)

	return router
}

func registerEventLogging(bus *events.Bus, zlog *zap.Logger) {
	bus.Subscribe(events.PaymentSucceededType, func(e events.Event) {
		if ev, ok := e.(*events.PaymentSucceededEvent); ok {
			zlog.Info("payment succeeded",
				zap.String("payment_id", ev.PaymentID.String()),
				zap.String("order_id", ev.OrderID.String()),
				zap.String("provider", ev.Provider),
			)
		}
	})
	bus.Subscribe(events.PaymentFailedType, func(e events.Event) {
		if ev, ok := e.(*events.PaymentFailedEvent); ok {
			zlog.Warn("payment failed",
				zap.String("payment_id", ev.PaymentID.String()),
				zap.String("order_id", ev.OrderID.String()),
				zap.String("provider", ev.Provider),
			)
		}
	})
}

// Run starts the HTTP server and blocks until it stops.
func (a *App) Run() error {
	a.log.Info("server starting", logger.String("address", a.cfg.Server.Address))
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("server shutting down")

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := cache.Close(a.redis); err != nil {
		a.log.Warn("close redis", logger.Err(err))
	}
	if err := database.Close(a.db); err != nil {
		a.log.Warn("close database", logger.Err(err))
	}
	_ = a.zlog.Sync()
	return nil
}
