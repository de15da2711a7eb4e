package handlers

import (
	"errors"
	"net/http"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/dto"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/preference"
	"github.com/gin-gonic/gin"
)

// PreferenceHandler manages per-user dialogue defaults.
type PreferenceHandler struct {
	service preference.Service
}

// NewPreferenceHandler creates a new PreferenceHandler instance
func NewPreferenceHandler(service preference.Service) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// SetPreference stores an explicit preference for the user.
func (h *PreferenceHandler) SetPreference(c *gin.Context) {
	userID := c.Param("user_id")

	var req dto.SetPreferenceRequest
	if validated, exists := c.Get("validated_model"); exists {
		if ptr, ok := validated.(*dto.SetPreferenceRequest); ok {
			req = *ptr
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model type from validation"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Set(c.Request.Context(), userID, req.Key, req.Value); err != nil {
		switch {
		case errors.Is(err, preference.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown preference key: " + req.Key})
		case errors.Is(err, preference.ErrInvalidValue):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value for " + req.Key})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preference"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// GetPreferences returns every stored preference for the user.
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID := c.Param("user_id")

	prefs, err := h.service.GetAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, dto.PreferencesResponse{UserID: userID, Preferences: prefs})
}

// DeletePreference removes one stored preference.
func (h *PreferenceHandler) DeletePreference(c *gin.Context) {
	userID := c.Param("user_id")
	key := c.Param("key")

	deleted, err := h.service.Delete(c.Request.Context(), userID, key)
	if err != nil {
		if errors.Is(err, preference.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown preference key: " + key})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete preference"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
