// Package api wires the gin engine for the local jaaz client API and runs
// the HTTP server with graceful shutdown.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/feitianbubu/jaaz/internal/api/handlers"
	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/logging"
	"github.com/feitianbubu/jaaz/internal/wsevents"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Server hosts the local API consumed by the UI.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer builds the engine and registers all routes.
func NewServer(cfg *config.Config, h *handlers.Handler, events *wsevents.Manager) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logging.GinRecovery(), logging.GinLogrusLogger())

	registerRoutes(engine, cfg, h, events)

	return &Server{
		cfg:    cfg,
		engine: engine,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func registerRoutes(engine *gin.Engine, cfg *config.Config, h *handlers.Handler, events *wsevents.Manager) {
	engine.GET("/api/auth/status", h.GetAuthStatus)
	engine.POST("/api/auth/login", h.PostLogin)
	engine.POST("/api/auth/logout", h.PostLogout)
	engine.GET("/api/auth/nd99u/url", h.GetSSOLoginURL)
	engine.GET(cfg.SSO.CallbackPath, h.GetSSOCallback)

	engine.GET("/api/config/exists", h.GetConfigExists)
	engine.GET("/api/config", h.GetConfig)
	engine.POST("/api/config", h.PostConfig)
	engine.POST("/api/config/jaaz-api-key", h.PostJaazAPIKey)
	engine.DELETE("/api/config/user-session", h.DeleteUserSession)

	engine.GET("/api/user/balance", h.GetBalance)
	engine.GET("/api/list_models", h.GetListModels)

	engine.GET("/ws/events", func(c *gin.Context) {
		events.HandleUpgrade(c.Writer, c.Request)
	})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("local API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server: shutdown failed: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
