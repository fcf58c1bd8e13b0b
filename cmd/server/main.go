package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	contractapp "github.com/meterbill/backend/internal/application/contract"
	meteringapp "github.com/meterbill/backend/internal/application/metering"
	"github.com/meterbill/backend/internal/application/notification"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/cache"
	"github.com/meterbill/backend/internal/infrastructure/config"
	"github.com/meterbill/backend/internal/infrastructure/event"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"github.com/meterbill/backend/internal/infrastructure/peer"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"github.com/meterbill/backend/internal/interfaces/http/handler"
	"github.com/meterbill/backend/internal/interfaces/http/middleware"
	"github.com/meterbill/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting meter billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if tracerProvider.Enabled() {
		if err := telemetry.InstrumentGorm(db.DB, cfg.Database.DBName, log); err != nil {
			log.Fatal("Failed to instrument database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Repositories
	contractRepo := persistence.NewGormContractRepository(db.DB)
	usageRepo := persistence.NewGormUsageRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	contractTxScope := persistence.NewGormContractTransactionScope(db.DB)
	meteringTxScope := persistence.NewGormMeteringTransactionScope(db.DB)

	// Peer service clients
	tokens := peer.NewServiceTokenSource(cfg.JWT)
	inventoryClient := peer.NewInventoryClient(cfg.Peer, tokens)
	customerClient := peer.NewCustomerDirectoryClient(cfg.Peer, tokens)
	notifier := peer.NewWebhookNotifier(cfg.Notify, log)

	// Application services
	contractService := contractapp.NewContractService(contractRepo, allocationRepo, inventoryClient, contractTxScope)
	usageService := meteringapp.NewUsageService(contractRepo, usageRepo, allocationRepo, meteringTxScope, log)

	// Event bus with idempotent notification handlers
	eventBus := event.NewInMemoryEventBus(log)

	idempotencyStore := cache.NewIdempotencyStore(cfg.Redis, log)
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	idempotencyConfig := shared.DefaultIdempotencyConfig()
	if cfg.Idempotency.TTL > 0 {
		idempotencyConfig.TTL = cfg.Idempotency.TTL
	}

	notificationHandlers := []shared.EventHandler{
		notification.NewInvoiceCreatedHandler(customerClient, notifier, log),
		notification.NewContractApprovedHandler(customerClient, notifier, log),
	}
	for _, h := range event.WrapIdempotent(notificationHandlers, idempotencyStore, idempotencyConfig, log) {
		eventBus.Subscribe(h)
	}

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	contractService.SetEventPublisher(eventBus)
	usageService.SetEventPublisher(eventBus)

	// HTTP handlers
	contractHandler := handler.NewContractHandler(contractService)
	usageHandler := handler.NewUsageHandler(usageService)
	systemHandler := handler.NewSystemHandler(db.DB)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.App.Name, tracerProvider.Enabled()))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Health endpoints stay outside API versioning and tenant scoping
	engine.GET("/health", systemHandler.Health)
	engine.GET("/system/info", systemHandler.GetSystemInfo)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Tenant())
	r.Register(contractHandler)
	r.Register(usageHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
