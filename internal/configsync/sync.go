// Package configsync mirrors the session token into the provider
// configuration so downstream generation calls are billed to the current
// user. It is also the single writer for provider config mutations coming
// from the settings API, so credential pushes and user edits cannot race.
package configsync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/constant"
	"github.com/feitianbubu/jaaz/internal/util"
	log "github.com/sirupsen/logrus"
)

// Synchronizer applies session lifecycle changes to the provider table.
type Synchronizer struct {
	mu  sync.Mutex
	cfg *config.Config
}

// New builds a synchronizer over the loaded configuration.
func New(cfg *config.Config) *Synchronizer {
	return &Synchronizer{cfg: cfg}
}

// OnLogin stores the token as the jaaz provider credential for the user
// identified by the token's user_id claim. The per-user session entry takes
// precedence over the global key when resolving credentials.
func (s *Synchronizer) OnLogin(ctx context.Context, token string) error {
	userID := util.ExtractUserID(token)
	if userID == "" {
		return fmt.Errorf("configsync: cannot extract user_id from token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	provider := s.providerLocked(constant.Jaaz)
	if provider.Sessions == nil {
		provider.Sessions = make(map[string]string)
	}
	provider.Sessions[userID] = token
	provider.APIKey = token

	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("configsync: persist login credential failed: %w", err)
	}
	log.Debugf("configsync: stored jaaz credential for user %s", userID)
	return nil
}

// OnLogout clears the credential. With a token the user-scoped session entry
// is removed; without one (legacy path) the global jaaz api-key is blanked.
func (s *Synchronizer) OnLogout(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider := s.providerLocked(constant.Jaaz)
	if strings.TrimSpace(token) != "" {
		userID := util.ExtractUserID(token)
		if userID == "" {
			return fmt.Errorf("configsync: cannot extract user_id from token")
		}
		delete(provider.Sessions, userID)
	}
	provider.APIKey = ""

	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("configsync: persist logout failed: %w", err)
	}
	log.Debug("configsync: cleared jaaz credential")
	return nil
}

// ClearUserSession removes the per-user session entry for userID.
func (s *Synchronizer) ClearUserSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider := s.providerLocked(constant.Jaaz)
	delete(provider.Sessions, userID)
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("configsync: persist session clear failed: %w", err)
	}
	return nil
}

// Providers returns a copy of the provider table for read-only use.
func (s *Synchronizer) Providers() map[string]*config.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*config.Provider, len(s.cfg.Providers))
	for name, provider := range s.cfg.Providers {
		copied := *provider
		copied.Models = make(map[string]*config.Model, len(provider.Models))
		for id, model := range provider.Models {
			modelCopy := *model
			copied.Models[id] = &modelCopy
		}
		copied.Sessions = make(map[string]string, len(provider.Sessions))
		for id, key := range provider.Sessions {
			copied.Sessions[id] = key
		}
		snapshot[name] = &copied
	}
	return snapshot
}

// UpdateProviders replaces the provider table from the settings API and
// persists the result.
func (s *Synchronizer) UpdateProviders(providers map[string]*config.Provider) error {
	if providers == nil {
		return fmt.Errorf("configsync: providers payload is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Providers = providers
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("configsync: persist providers failed: %w", err)
	}
	return nil
}

// ConfigExists reports whether the config file has been written yet.
func (s *Synchronizer) ConfigExists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Exists()
}

func (s *Synchronizer) providerLocked(name string) *config.Provider {
	provider, ok := s.cfg.Providers[name]
	if !ok {
		provider = &config.Provider{}
		if s.cfg.Providers == nil {
			s.cfg.Providers = make(map[string]*config.Provider)
		}
		s.cfg.Providers[name] = provider
	}
	return provider
}
