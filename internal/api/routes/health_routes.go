package routes

import (
	"net/http"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2026-08-28T02:00:00Z"`
}

// SetupHealthRoutes registers health check endpoints
func SetupHealthRoutes(router *gin.Engine, redis *cache.RedisClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	// Readiness fails when the session store is unreachable, since every
	// turn depends on it.
	router.GET("/health/ready", func(c *gin.Context) {
		if redis != nil {
			if err := redis.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"error":     "session store unreachable",
					"timestamp": time.Now().UTC(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
		})
	})
}
