// Package handlers implements the local HTTP API consumed by the jaaz UI:
// session status and login flows, the 99u SSO callback, provider
// configuration, balance and model listings.
package handlers

import (
	"github.com/feitianbubu/jaaz/internal/billing"
	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/configsync"
	"github.com/feitianbubu/jaaz/internal/models"
	"github.com/feitianbubu/jaaz/internal/session"
)

// Handler bundles the services the HTTP surface exposes.
type Handler struct {
	cfg      *config.Config
	sessions *session.Manager
	sync     *configsync.Synchronizer
	balance  *billing.Fetcher
	models   *models.Service
}

// New constructs the handler set.
func New(cfg *config.Config, sessions *session.Manager, sync *configsync.Synchronizer, balance *billing.Fetcher, modelList *models.Service) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		sync:     sync,
		balance:  balance,
		models:   modelList,
	}
}
