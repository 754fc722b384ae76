package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/platformbuilds/delivery-hours/internal/api/handlers"
	"github.com/platformbuilds/delivery-hours/internal/api/middleware"
	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/internal/version"
	"github.com/platformbuilds/delivery-hours/pkg/cache"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	DeliveryHours handlers.DeliveryHoursComputer
	Payloads      handlers.CacheInvalidator
	Cache         cache.ValkeyCluster
	Upstreams     []handlers.Upstream
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	deps       Dependencies
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, deps Dependencies) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config: cfg,
		logger: log,
		deps:   deps,
		router: gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())

	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))

	if s.config.Monitoring.Enabled && s.config.Monitoring.PrometheusEnabled {
		s.router.Use(monitoring.HTTPMetricsMiddleware())
	}

	s.router.Use(middleware.RateLimiter(s.config.RateLimit))
	s.router.Use(middleware.ErrorHandler(s.logger))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Cache, s.logger, s.deps.Upstreams...)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/upstreams/status", healthHandler.UpstreamsStatus)

	if s.config.Monitoring.Enabled && s.config.Monitoring.PrometheusEnabled {
		monitoring.SetupPrometheusMetrics(s.router, s.config.Monitoring.MetricsPath, version.Version)
	}

	// OpenAPI document and Swagger UI at /swagger/index.html
	s.router.StaticFile("/api/openapi.yaml", handlers.OpenAPIPath())
	s.router.GET("/api/openapi.json", handlers.GetOpenAPISpec)
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	deliveryHandler := handlers.NewDeliveryHoursHandler(s.deps.DeliveryHours, s.logger)
	s.router.GET("/delivery-hours", deliveryHandler.GetDeliveryHours)

	v1 := s.router.Group("/api/v1")
	v1.GET("/delivery-hours", deliveryHandler.GetDeliveryHours)
	v1.GET("/health", healthHandler.HealthCheck)

	if s.deps.Payloads != nil {
		cacheHandler := handlers.NewCacheHandler(s.deps.Payloads, s.logger, "venue", "courier")
		v1.DELETE("/cache/:service", cacheHandler.InvalidateService)
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Delivery hours API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down delivery hours API gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
