package handlers

import (
	"net/http"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/gin-gonic/gin"
)

const defaultWindowDays = 7

// AnalyticsHandler serves conversation dashboards.
type AnalyticsHandler struct {
	service analytics.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler instance
func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// GetSummary returns aggregate totals for the window plus the preceding
// window of equal length.
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	var query dto.AnalyticsWindowQuery
	if validated, exists := c.Get("validated_query"); exists {
		if ptr, ok := validated.(*dto.AnalyticsWindowQuery); ok {
			query = *ptr
		}
	} else if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.WindowDays <= 0 {
		query.WindowDays = defaultWindowDays
	}

	summary, err := h.service.Summary(c.Request.Context(), query.WindowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetFunnel returns per-step drop-off for one flow kind.
func (h *AnalyticsHandler) GetFunnel(c *gin.Context) {
	var query dto.FunnelQuery
	if validated, exists := c.Get("validated_query"); exists {
		if ptr, ok := validated.(*dto.FunnelQuery); ok {
			query = *ptr
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query type from validation"})
			return
		}
	} else if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.WindowDays <= 0 {
		query.WindowDays = defaultWindowDays
	}

	report, err := h.service.Funnel(c.Request.Context(), query.FlowKind, query.WindowDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetDailyMetrics returns the per-day metric rows inside the window.
func (h *AnalyticsHandler) GetDailyMetrics(c *gin.Context) {
	var query dto.AnalyticsWindowQuery
	if validated, exists := c.Get("validated_query"); exists {
		if ptr, ok := validated.(*dto.AnalyticsWindowQuery); ok {
			query = *ptr
		}
	} else if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.WindowDays <= 0 {
		query.WindowDays = defaultWindowDays
	}

	metrics, err := h.service.DailyBreakdown(c.Request.Context(), query.WindowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load daily metrics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"window_days": query.WindowDays, "metrics": metrics})
}

// GetRecentEvents returns the newest raw events for debugging dashboards.
func (h *AnalyticsHandler) GetRecentEvents(c *gin.Context) {
	var query dto.RecentEventsQuery
	if validated, exists := c.Get("validated_query"); exists {
		if ptr, ok := validated.(*dto.RecentEventsQuery); ok {
			query = *ptr
		}
	} else if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	events, err := h.service.Recent(c.Request.Context(), query.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
