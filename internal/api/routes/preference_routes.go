package routes

import (
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/handlers"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type PreferenceRoutes struct {
	handler *handlers.PreferenceHandler
}

func NewPreferenceRoutes(handler *handlers.PreferenceHandler) *PreferenceRoutes {
	return &PreferenceRoutes{handler: handler}
}

// RegisterRoutes registers the per-user preference endpoints
func (p *PreferenceRoutes) RegisterRoutes(router *gin.Engine) {
	validation := middleware.NewValidationMiddleware()

	prefs := router.Group("/api/users/:user_id/preferences")

	prefs.GET("", p.handler.GetPreferences)
	prefs.PUT("", validation.ValidateRequest(&dto.SetPreferenceRequest{}), p.handler.SetPreference)
	prefs.DELETE("/:key", p.handler.DeletePreference)
}
