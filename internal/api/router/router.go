package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/geophoto-worker/internal/api/handler"
)

const serviceName = "decision-api-service"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(cors.New(corsConfig()))
	r.Use(PrometheusMiddleware(serviceName))

	r.GET("/health", healthHandler(deps.HealthCheck, deps.Logger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	decisionHandler := handler.NewDecisionHandler(deps)

	v1 := r.Group("/api/v1")
	{
		decisions := v1.Group("/decisions")
		{
			// GET /api/v1/decisions - List decisions with filtering and pagination
			decisions.GET("", decisionHandler.ListDecisions)

			// GET /api/v1/decisions/:photo_id - Get the decision for one photo
			decisions.GET("/:photo_id", decisionHandler.GetDecision)
		}
	}

	return r
}

func corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	config.AllowMethods = []string{"GET", "OPTIONS"}
	config.ExposeHeaders = []string{requestIDHeader}
	return config
}

func healthHandler(check func(ctx context.Context) error, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", slog.String("error", err.Error()))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": serviceName,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}
