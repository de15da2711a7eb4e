package routes

import (
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/handlers"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

type AnalyticsRoutes struct {
	handler *handlers.AnalyticsHandler
}

func NewAnalyticsRoutes(handler *handlers.AnalyticsHandler) *AnalyticsRoutes {
	return &AnalyticsRoutes{handler: handler}
}

// RegisterRoutes registers the conversation analytics endpoints
func (a *AnalyticsRoutes) RegisterRoutes(router *gin.Engine) {
	validation := middleware.NewValidationMiddleware()

	analytics := router.Group("/api/analytics")

	// Dashboard reads can be large, compress them
	analytics.GET("/summary", validation.ValidateQuery(&dto.AnalyticsWindowQuery{}), gzip.Gzip(gzip.DefaultCompression), a.handler.GetSummary)
	analytics.GET("/funnel", validation.ValidateQuery(&dto.FunnelQuery{}), a.handler.GetFunnel)
	analytics.GET("/daily", validation.ValidateQuery(&dto.AnalyticsWindowQuery{}), gzip.Gzip(gzip.DefaultCompression), a.handler.GetDailyMetrics)
	analytics.GET("/events", validation.ValidateQuery(&dto.RecentEventsQuery{}), a.handler.GetRecentEvents)
}
