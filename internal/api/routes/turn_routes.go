package routes

import (
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/handlers"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type TurnRoutes struct {
	handler *handlers.TurnHandler
}

func NewTurnRoutes(handler *handlers.TurnHandler) *TurnRoutes {
	return &TurnRoutes{handler: handler}
}

// RegisterRoutes registers the dialogue endpoints
func (t *TurnRoutes) RegisterRoutes(router *gin.Engine) {
	validation := middleware.NewValidationMiddleware()

	dialogue := router.Group("/api/dialogue")

	dialogue.POST("/turn", validation.ValidateRequest(&dto.TurnRequest{}), t.handler.HandleTurn)

	// Session control beside the turn endpoint
	dialogue.GET("/sessions/:user_id", t.handler.GetSession)
	dialogue.POST("/sessions/:user_id/pause", t.handler.PauseSession)
	dialogue.POST("/sessions/:user_id/resume", t.handler.ResumeSession)
	dialogue.POST("/sessions/:user_id/cancel", t.handler.CancelSession)
}
