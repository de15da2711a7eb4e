package handlers

import (
	"errors"
	"net/http"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/engine"
	"github.com/gin-gonic/gin"
)

// TurnHandler exposes the dialogue engine to the transport layer.
type TurnHandler struct {
	engine *engine.Engine
}

// NewTurnHandler creates a new TurnHandler instance
func NewTurnHandler(eng *engine.Engine) *TurnHandler {
	return &TurnHandler{engine: eng}
}

// HandleTurn processes one user message through the engine.
func (h *TurnHandler) HandleTurn(c *gin.Context) {
	var req dto.TurnRequest
	if validated, exists := c.Get("validated_model"); exists {
		if ptr, ok := validated.(*dto.TurnRequest); ok {
			req = *ptr
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model type from validation"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.HandleTurn(c.Request.Context(), req.UserID, req.Message, req.Entities)
	if err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			// Hard failure: the caller retries, we never fabricate state.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.TurnResponse{
		Reply:   result.Reply,
		Session: dto.NewSessionSnapshot(result.Session),
	})
}

// GetSession returns the user's current session snapshot.
func (h *TurnHandler) GetSession(c *gin.Context) {
	userID := c.Param("user_id")
	sess, err := h.engine.SessionSnapshot(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionSnapshot(sess))
}

// PauseSession explicitly suspends the user's live flow.
func (h *TurnHandler) PauseSession(c *gin.Context) {
	userID := c.Param("user_id")

	var req dto.PauseRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "explicit pause"
	}

	paused, err := h.engine.PauseFlow(c.Request.Context(), userID, req.Reason)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if !paused {
		c.JSON(http.StatusConflict, gin.H{"error": "no active flow to pause"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// ResumeSession restores the most recently paused context.
func (h *TurnHandler) ResumeSession(c *gin.Context) {
	userID := c.Param("user_id")

	result, err := h.engine.ResumeFlow(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, engine.ErrNothingToResume) {
			c.JSON(http.StatusConflict, gin.H{"error": "nothing to resume"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.TurnResponse{
		Reply:   result.Reply,
		Session: dto.NewSessionSnapshot(result.Session),
	})
}

// CancelSession abandons the user's live flow.
func (h *TurnHandler) CancelSession(c *gin.Context) {
	userID := c.Param("user_id")

	cancelled, err := h.engine.CancelFlow(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if !cancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "no active flow to cancel"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
