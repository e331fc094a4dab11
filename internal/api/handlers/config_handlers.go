package handlers

import (
	"net/http"

	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/util"
	"github.com/gin-gonic/gin"
)

// GetConfigExists reports whether the config file has been created yet.
func (h *Handler) GetConfigExists(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"exists": h.sync.ConfigExists()})
}

// GetConfig returns the provider table.
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Providers())
}

// PostConfig replaces the provider table from the settings dialog.
func (h *Handler) PostConfig(c *gin.Context) {
	var providers map[string]*config.Provider
	if err := c.ShouldBindJSON(&providers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid body"})
		return
	}
	if err := h.sync.UpdateProviders(providers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "config updated"})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// PostJaazAPIKey stores the jaaz provider credential for the user identified
// by the submitted token.
func (h *Handler) PostJaazAPIKey(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Token is required"})
		return
	}
	if err := h.sync.OnLogin(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "jaaz api key updated"})
}

// DeleteUserSession clears the user-scoped session configuration.
func (h *Handler) DeleteUserSession(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Token is required"})
		return
	}
	userID := util.ExtractUserID(req.Token)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid token: cannot extract user_id"})
		return
	}
	if err := h.sync.ClearUserSession(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Session cleared for user " + userID})
}
