package delivery

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"adpulse/internal/delivery/middleware"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

type HTTPRouter struct {
	handlers       *HTTPHandlers
	logger         *logger.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, requestTimeout time.Duration) *HTTPRouter {
	return &HTTPRouter{
		handlers:       handlers,
		logger:         logger,
		metrics:        metrics,
		requestTimeout: requestTimeout,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(r.requestTimeout))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("", r.handlers.GetDashboard)
			dashboard.POST("/refresh", r.handlers.RefreshDashboard)
			dashboard.GET("/effective", r.handlers.GetEffectiveStats)
			dashboard.PUT("/daterange", r.handlers.SetDateRange)
			dashboard.GET("/daterange/labels", r.handlers.ListDateRangeLabels)
			dashboard.PUT("/auto-refresh", r.handlers.SetAutoRefresh)
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.PATCH("/status", r.handlers.UpdateCampaignStatus)
		}

		recommendations := v1.Group("/recommendations")
		{
			recommendations.GET("", r.handlers.ListRecommendations)
			recommendations.POST("", r.handlers.ApplyRecommendation)
			recommendations.DELETE("", r.handlers.DismissRecommendation)
		}

		v1.GET("/integrations/status", r.handlers.GetIntegrationsStatus)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	return router
}
