package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/auth/nd99u"
	"github.com/feitianbubu/jaaz/internal/auth/primary"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetAuthStatus returns the current session snapshot.
func (h *Handler) GetAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Status())
}

// PostLogin runs the primary username/password flow.
func (h *Handler) PostLogin(c *gin.Context) {
	var creds primary.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid body"})
		return
	}

	profile, err := h.sessions.LoginWithPrimary(c.Request.Context(), creds)
	if err != nil && auth.KindOf(err) != auth.KindConfigSync {
		status := http.StatusUnauthorized
		if auth.KindOf(err) == auth.KindNetwork {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"success": false, "message": auth.DisplayMessage(err)})
		return
	}

	response := gin.H{"success": true, "data": profile}
	if err != nil {
		// Session committed; the provider config push failed. Surface as a
		// warning so the UI can tell the user generation calls may fail.
		response["warning"] = auth.DisplayMessage(err)
	}
	c.JSON(http.StatusOK, response)
}

// PostLogout clears the session. The local session always clears; a config
// clear failure is reported as a warning only.
func (h *Handler) PostLogout(c *gin.Context) {
	err := h.sessions.Logout(c.Request.Context())
	response := gin.H{"success": true}
	if err != nil {
		response["warning"] = auth.DisplayMessage(err)
	}
	c.JSON(http.StatusOK, response)
}

// GetSSOLoginURL builds the 99u redirect URL for the UI login button.
func (h *Handler) GetSSOLoginURL(c *gin.Context) {
	flow := nd99u.NewFlow(h.sessions.SSO())
	loginURL, err := flow.Begin(h.callbackURI(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": loginURL})
}

// GetSSOCallback handles the identity-provider redirect. Every outcome sends
// the browser away from the callback page: home on success, the login page
// with an error message otherwise.
func (h *Handler) GetSSOCallback(c *gin.Context) {
	uckey := strings.TrimSpace(c.Query("uckey"))
	profile, err := h.sessions.CompleteSSOLogin(c.Request.Context(), uckey)
	if err != nil && auth.KindOf(err) != auth.KindConfigSync {
		log.Warnf("nd99u callback rejected: %v", err)
		h.redirectLanding(c, auth.DisplayMessage(err))
		return
	}
	if err != nil {
		log.Warnf("nd99u login succeeded but config sync failed: %v", err)
	}

	log.Infof("nd99u callback completed for user %s", profile.Username)
	c.Redirect(http.StatusFound, "/")
}

// callbackURI derives the absolute callback URL for this server instance.
func (h *Handler) callbackURI(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + h.sessions.SSO().CallbackPath()
}

// redirectLanding sends the browser to the login page carrying the error.
func (h *Handler) redirectLanding(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(message))
}
