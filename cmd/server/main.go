package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	checkoutapp "github.com/shop/backend/internal/application/checkout"
	inventoryapp "github.com/shop/backend/internal/application/inventory"
	orderapp "github.com/shop/backend/internal/application/order"
	paymentapp "github.com/shop/backend/internal/application/payment"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/infrastructure/auth"
	"github.com/shop/backend/internal/infrastructure/cache"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/event"
	"github.com/shop/backend/internal/infrastructure/logger"
	gateway "github.com/shop/backend/internal/infrastructure/payment"
	"github.com/shop/backend/internal/infrastructure/persistence"
	"github.com/shop/backend/internal/infrastructure/telemetry"
	"github.com/shop/backend/internal/interfaces/http/handler"
	"github.com/shop/backend/internal/interfaces/http/middleware"
	"github.com/shop/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Shop Backend API
//	@version		1.0
//	@description	E-commerce checkout and order settlement API
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/shop/backend
//	@contact.email	support@shop.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Shop Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.SlowQueryThreshold,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize Redis (idempotency keys, token blacklist)
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully")

	// Initialize readers and repositories
	cartReader := persistence.NewGormCartReader(db.DB)
	catalogReader := persistence.NewGormCatalogReader(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	// Transaction scopes bound per use case
	checkoutScope := persistence.NewCheckoutTransactionScope(db.DB)
	orderScope := persistence.NewOrderTransactionScope(db.DB)
	paymentScope := persistence.NewPaymentTransactionScope(db.DB)

	// Initialize payment gateways
	sandboxGateway, err := gateway.NewSandboxAdapter(&gateway.SandboxConfig{
		Endpoint: cfg.Payment.SandboxEndpoint,
		APIKey:   cfg.Payment.SandboxAPIKey,
		Secret:   cfg.Payment.SandboxSecret,
	})
	if err != nil {
		log.Fatal("Failed to initialize sandbox payment gateway", zap.Error(err))
	}
	gateways := gateway.NewGatewayRegistry(sandboxGateway)
	log.Info("Payment gateways registered", zap.Any("providers", gateways.Providers()))

	// Initialize event bus and subscribe the order activity log
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(orderapp.NewActivityHandler(log.Named("order_activity")))

	// Checkout pricing configuration
	shippingFee, err := decimal.NewFromString(cfg.Checkout.ShippingFlatFee)
	if err != nil {
		log.Fatal("Invalid shipping flat fee", zap.String("value", cfg.Checkout.ShippingFlatFee), zap.Error(err))
	}

	// Initialize application services
	checkoutService := checkoutapp.NewCheckoutService(
		cartReader,
		catalogReader,
		checkoutScope,
		gateways,
		log,
		checkoutapp.Config{
			ShippingFlatFee: shippingFee,
			TaxRate:         decimal.NewFromFloat(cfg.Checkout.TaxRate),
			PaymentExpiry:   cfg.Payment.Expiry,
			DefaultProvider: payment.Provider(cfg.Payment.DefaultProvider),
			CallbackURL:     cfg.Payment.CallbackURL,
			ReturnURL:       cfg.Payment.ReturnURL,
		},
	)
	orderService := orderapp.NewOrderService(orderScope, gateways, log)
	idempotencyStore := cache.NewRedisIdempotencyStore(redisClient, "payment:callback:")
	paymentService := paymentapp.NewPaymentService(paymentScope, gateways, idempotencyStore, log)
	timeoutService := paymentapp.NewTimeoutService(paymentService, paymentScope, cfg.Payment.Expiry, log)
	stockService := inventoryapp.NewStockService(stockRepo, ledgerRepo, log)

	// Inject event bus into services that publish events
	checkoutService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)

	// JWT authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := auth.NewRedisTokenBlacklist(redisClient)

	// Initialize HTTP handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService, timeoutService, gateways)
	stockHandler := handler.NewStockHandler(stockService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	// 8. Tracing - Per-request spans (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Request tracing
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes.
	// Gateway callbacks are exempt: they are authenticated by signature instead.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/info",
			"/api/v1/system/health",
		},
		SkipPathPrefixes: []string{
			"/api/v1/payments/callback",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Checkout domain
	checkoutRoutes := router.NewDomainGroup("/checkout")
	checkoutRoutes.POST("", checkoutHandler.Checkout)

	// Order domain
	orderRoutes := router.NewDomainGroup("/orders")
	orderRoutes.GET("", orderHandler.ListOrders)
	orderRoutes.GET("/:id", orderHandler.GetOrder)
	orderRoutes.GET("/number/:number", orderHandler.GetOrderByNumber)
	orderRoutes.POST("/:id/cancel", orderHandler.CancelOrder)
	orderRoutes.POST("/:id/sub-orders/:subOrderId/ship", orderHandler.ShipSubOrder)
	orderRoutes.POST("/:id/sub-orders/:subOrderId/deliver", orderHandler.DeliverSubOrder)

	// Payment domain. Callback endpoints are called by external gateways.
	paymentRoutes := router.NewDomainGroup("/payments")
	paymentRoutes.POST("/callback/:provider", paymentHandler.Callback)
	paymentRoutes.POST("/verify/:orderId", paymentHandler.VerifyPayment)
	paymentRoutes.POST("/sweep", paymentHandler.SweepExpired)
	paymentRoutes.GET("/providers", paymentHandler.ListProviders)

	// Stock domain
	stockRoutes := router.NewDomainGroup("/stock")
	stockRoutes.GET("/:productId", stockHandler.GetStock)
	stockRoutes.GET("/:productId/ledger", stockHandler.ListLedger)
	stockRoutes.GET("/ledger/orders/:orderId", stockHandler.ListLedgerByOrder)
	stockRoutes.POST("/:productId/restock", stockHandler.Restock)

	// System routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/health", systemHandler.Health)

	// Register all domain groups
	r.Register(checkoutRoutes).
		Register(orderRoutes).
		Register(paymentRoutes).
		Register(stockRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Start payment timeout sweeper (if enabled)
	sweeperStop := make(chan struct{})
	if cfg.Sweeper.Enabled {
		go runSweeper(timeoutService, cfg.Sweeper.CheckInterval, sweeperStop, log)
		log.Info("Payment timeout sweeper started",
			zap.Duration("check_interval", cfg.Sweeper.CheckInterval),
			zap.Duration("payment_expiry", cfg.Payment.Expiry),
		)
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	close(sweeperStop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runSweeper periodically resolves orders whose payment window expired
func runSweeper(svc *paymentapp.TimeoutService, interval time.Duration, stop <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := svc.SweepExpired(context.Background())
			if err != nil {
				log.Error("Payment timeout sweep failed", zap.Error(err))
				continue
			}
			if stats.TotalStale > 0 {
				log.Info("Payment timeout sweep finished",
					zap.Int("stale", stats.TotalStale),
					zap.Int("settled", stats.Settled),
					zap.Int("cancelled", stats.Cancelled),
					zap.Int("failed", stats.Failed),
				)
			}
		case <-stop:
			return
		}
	}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.FromGin(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
