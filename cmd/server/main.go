//	@title			Number Warming Service API
//	@version		1.0
//	@description	Schedules WhatsApp warming conversations between a tenant's primary number, its secondary instances and client numbers.

//	@contact.name	API Support
//	@contact.email	support@example.com

//	@license.name	MIT
//	@license.url	http://opensource.org/licenses/MIT

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/galihcitta/number-warming-service/internal/api"
	"github.com/galihcitta/number-warming-service/internal/config"
	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/repository"
	"github.com/galihcitta/number-warming-service/internal/services/gateway"
	"github.com/galihcitta/number-warming-service/internal/services/inbound"
	"github.com/galihcitta/number-warming-service/internal/services/messaging"
	"github.com/galihcitta/number-warming-service/internal/services/monitor"
	"github.com/galihcitta/number-warming-service/internal/services/tenant"
	"github.com/galihcitta/number-warming-service/internal/services/warming"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting number warming service")

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(cfg.Database.URL, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	db, err := repository.NewDatabase(cfg.Database.URL, repository.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	tenantRepo := repository.NewTenantRepository(db.Pool(), logger)
	instanceRepo := repository.NewInstanceRepository(db.Pool(), logger)
	templateRepo := repository.NewTemplateRepository(db.Pool(), logger)
	clientRepo := repository.NewClientNumberRepository(db.Pool(), logger)
	configRepo := repository.NewWarmingConfigRepository(db.Pool(), logger)
	logRepo := repository.NewActivityLogRepository(db.Pool(), logger)

	evolution := gateway.NewEvolutionClient(gateway.Options{
		Timeout:       cfg.Gateway.Timeout,
		DefaultRegion: cfg.Gateway.DefaultRegion,
		RatePerSecond: cfg.Gateway.RatePerSecond,
		Burst:         cfg.Gateway.Burst,
	}, logger)

	activity := warming.NewActivityLogger(logRepo, logger)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 10*time.Second)
	if err := activity.Probe(probeCtx); err != nil {
		logger.Warn("Could not probe activity log table", zap.Error(err))
	}
	cancelProbe()

	location, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatal("Invalid scheduler timezone", zap.Error(err))
	}

	rng := warming.NewRandom(time.Now().UnixNano())
	resolver := warming.NewResolver(instanceRepo, templateRepo, clientRepo, rng)
	engine := warming.NewEngine(configRepo, resolver, instanceRepo, evolution, activity, rng, logger,
		warming.WithTiming(warming.Timing{
			OutsideHoursBackoff: cfg.Scheduler.OutsideHoursBackoff,
			NotReadyBackoff:     cfg.Scheduler.NotReadyBackoff,
			ErrorBackoff:        cfg.Scheduler.ErrorBackoff,
			CycleTimeout:        cfg.Scheduler.CycleTimeout,
			DelayUnit:           time.Second,
		}),
		warming.WithLocation(location),
	)
	registry := warming.NewRegistry(engine, resolver, templateRepo, activity, logRepo, logger)
	diagnostics := warming.NewDiagnostics(registry, configRepo, instanceRepo, resolver, templateRepo, clientRepo, logRepo)

	processor := inbound.NewProcessor(instanceRepo, activity, logger)

	// The broker is optional; without it webhooks are handled inline.
	var (
		rabbitMQ  *messaging.RabbitMQManager
		consumers *messaging.ConsumerPool
		publisher api.EventPublisher
	)
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ = messaging.NewRabbitMQManager(cfg.RabbitMQ.URL, logger)
		if err := rabbitMQ.Connect(); err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		consumers = messaging.NewConsumerPool(cfg.RabbitMQ.WebhookQueue, cfg.RabbitMQ.Workers, rabbitMQ, processor, logger)
		if err := consumers.Start(); err != nil {
			logger.Fatal("Failed to start webhook consumers", zap.Error(err))
		}
		publisher = rabbitMQ
	}

	connectivity := monitor.NewMonitor(instanceRepo, evolution, cfg.Monitor.Interval, logger)
	if cfg.Monitor.Enabled {
		connectivity.Start()
	}

	if cfg.Scheduler.ResumeOnBoot {
		if _, err := registry.Restore(context.Background()); err != nil {
			logger.Error("Failed to restore warming sessions", zap.Error(err))
		}
	}

	tenantManager := tenant.NewManager(tenantRepo, registry, logger)
	auth := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.RequireAuth)
	webhookLimiter := middleware.NewRateLimiter(rate.Limit(cfg.Webhook.RatePerSecond), cfg.Webhook.Burst)

	server := api.NewServer(cfg, auth, api.Handlers{
		Tenants:       api.NewTenantHandler(tenantManager, logger),
		Warming:       api.NewWarmingHandler(registry, diagnostics, logger),
		Instances:     api.NewInstanceHandler(instanceRepo, connectivity, logger),
		Messages:      api.NewMessageHandler(templateRepo, logger),
		ClientNumbers: api.NewClientNumberHandler(clientRepo, logger),
		Config:        api.NewConfigHandler(configRepo, logger),
		Webhook:       api.NewWebhookHandler(processor, publisher, cfg.RabbitMQ.WebhookQueue, webhookLimiter, logger),
	}, logger)
	server.SetupRoutes()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.GetRouter(),
	}

	go func() {
		logger.Info("Server starting", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
	defer cancel()

	// Sessions are cancelled without a STOPPED entry so the next boot
	// resumes them.
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down warming registry", zap.Error(err))
	}
	connectivity.Stop()

	if consumers != nil {
		consumers.Stop()
	}
	if rabbitMQ != nil {
		if err := rabbitMQ.Close(); err != nil {
			logger.Error("Error closing RabbitMQ", zap.Error(err))
		}
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

func initLogger(level string) (*zap.Logger, error) {
	var zapConfig zap.Config

	if gin.Mode() == gin.DebugMode {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapConfig.Build()
}
