package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetBalance returns the formatted account balance for the current user.
func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.balance.Balance(c.Request.Context())
	if err != nil {
		log.Debugf("balance fetch failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "failed to fetch balance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GetListModels returns the flattened model listing. Hosted jaaz models only
// appear for an authenticated session.
func (h *Handler) GetListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.List())
}
