package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/galihcitta/number-warming-service/docs"
	"github.com/galihcitta/number-warming-service/internal/config"
	"github.com/galihcitta/number-warming-service/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Tenants       *TenantHandler
	Warming       *WarmingHandler
	Instances     *InstanceHandler
	Messages      *MessageHandler
	ClientNumbers *ClientNumberHandler
	Config        *ConfigHandler
	Webhook       *WebhookHandler
}

type Server struct {
	router   *gin.Engine
	config   *config.Config
	auth     *middleware.JWTAuth
	handlers Handlers
	logger   *zap.Logger
}

func NewServer(cfg *config.Config, auth *middleware.JWTAuth, handlers Handlers, logger *zap.Logger) *Server {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	if cfg.Metrics.Enabled {
		router.Use(middleware.PrometheusMiddleware())
	}

	return &Server{
		router:   router,
		config:   cfg,
		auth:     auth,
		handlers: handlers,
		logger:   logger,
	}
}

func (s *Server) SetupRoutes() {
	s.router.GET("/health", s.healthCheck)

	if s.config.Metrics.Enabled {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateway callbacks are unauthenticated and rate limited inside the
	// handler so they still get a 200.
	webhook := s.router.Group("/api/webhook")
	{
		webhook.POST("/evolution", s.handlers.Webhook.Receive)
		webhook.GET("/health", s.handlers.Webhook.Health)
	}

	limiter := middleware.NewRateLimiter(rate.Limit(s.config.Server.RatePerSecond), s.config.Server.Burst)
	v1 := s.router.Group("/api/v1", limiter.Middleware(), s.auth.Middleware())
	{
		warming := v1.Group("/warming")
		{
			warming.POST("/start", s.handlers.Warming.Start)
			warming.POST("/stop", s.handlers.Warming.Stop)
			warming.GET("/status", s.handlers.Warming.Status)
			warming.GET("/logs", s.handlers.Warming.Logs)
			warming.GET("/diagnostics", s.handlers.Warming.Diagnostics)
		}

		v1.GET("/config", s.handlers.Config.Get)
		v1.PUT("/config", s.handlers.Config.Update)

		instances := v1.Group("/instances")
		{
			instances.GET("", s.handlers.Instances.List)
			instances.POST("", s.handlers.Instances.Create)
			instances.PUT("/:id", s.handlers.Instances.Update)
			instances.DELETE("/:id", s.handlers.Instances.Delete)
			instances.POST("/:id/check-status", s.handlers.Instances.CheckStatus)
		}

		messages := v1.Group("/messages")
		{
			messages.GET("", s.handlers.Messages.List)
			messages.POST("", s.handlers.Messages.Create)
			messages.POST("/import", s.handlers.Messages.Import)
			messages.DELETE("/:id", s.handlers.Messages.Delete)
		}

		clients := v1.Group("/client-numbers")
		{
			clients.GET("", s.handlers.ClientNumbers.List)
			clients.POST("", s.handlers.ClientNumbers.Create)
			clients.POST("/import", s.handlers.ClientNumbers.Import)
			clients.DELETE("/:id", s.handlers.ClientNumbers.Delete)
		}

		tenants := v1.Group("/tenants", middleware.AdminOnlyMiddleware())
		{
			tenants.POST("", s.handlers.Tenants.CreateTenant)
			tenants.GET("", s.handlers.Tenants.GetAllTenants)
			tenants.GET("/stats", s.handlers.Tenants.GetTenantStats)
			tenants.GET("/:id", s.handlers.Tenants.GetTenant)
			tenants.DELETE("/:id", s.handlers.Tenants.DeleteTenant)
		}
	}
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "number-warming-service",
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Tenant-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
