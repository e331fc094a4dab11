// Package session provides the single source of truth for the logged-in
// state. The manager wraps the token store, runs the login flows, fans out
// change notifications and drives the provider configuration synchronizer.
// No other component mutates stored credentials.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/auth/nd99u"
	"github.com/feitianbubu/jaaz/internal/auth/primary"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Synchronizer mirrors session changes into the provider configuration so
// generation requests are attributed to the current user.
type Synchronizer interface {
	OnLogin(ctx context.Context, token string) error
	OnLogout(ctx context.Context, token string) error
}

// Listener receives session change notifications. By the time a listener
// fires the token store already reflects the new state.
type Listener func(auth.Session)

// Manager owns the session lifecycle.
type Manager struct {
	store   *auth.TokenStore
	primary *primary.Auth
	sso     *nd99u.Auth
	sync    Synchronizer

	// loginGate admits a single login attempt at a time so interleaved
	// writes cannot corrupt the token+profile pairing.
	loginGate *semaphore.Weighted

	mu           sync.RWMutex
	session      auth.Session
	token        string
	listeners    map[int]Listener
	nextListener int
}

// NewManager builds a manager and primes its cached state from the token
// store. A corrupt persisted record is cleared rather than trusted.
func NewManager(store *auth.TokenStore, primaryAuth *primary.Auth, ssoAuth *nd99u.Auth, sync Synchronizer) *Manager {
	m := &Manager{
		store:     store,
		primary:   primaryAuth,
		sso:       ssoAuth,
		sync:      sync,
		loginGate: semaphore.NewWeighted(1),
		listeners: make(map[int]Listener),
	}
	record, err := store.Read()
	if err != nil {
		log.Warnf("session: discarding unreadable session record: %v", err)
		_ = store.Clear()
		record = nil
	}
	m.session = record.Session()
	if record != nil {
		m.token = record.AccessToken
	}
	return m
}

// Status returns the current cached session. Cheap and non-blocking.
func (m *Manager) Status() auth.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// AccessToken returns the current bearer token, or an empty string when no
// user is logged in. It backs the authenticated request wrapper.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// SSO exposes the 99u flow helper for callback handling and URL building.
func (m *Manager) SSO() *nd99u.Auth {
	return m.sso
}

// Subscribe registers a listener for session changes and returns the
// matching unsubscribe function. Listeners are invoked synchronously after
// the token store write committed; they must not re-enter the manager's
// mutating operations.
func (m *Manager) Subscribe(listener Listener) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// LoginWithPrimary runs the username/password flow. On success the session is
// committed before the call returns. A KindConfigSync error means the login
// itself succeeded but the provider configuration push failed; callers should
// surface it as a warning, not roll back.
func (m *Manager) LoginWithPrimary(ctx context.Context, creds primary.Credentials) (*auth.UserProfile, error) {
	if !m.loginGate.TryAcquire(1) {
		return nil, auth.NewError(auth.KindRejectedCredentials, "another login is already in progress", nil)
	}
	defer m.loginGate.Release(1)

	record, err := m.primary.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, record)
}

// CompleteSSOLogin runs the callback half of the 99u flow: the uckey is fed
// through a single-shot Flow (AwaitingCallback -> Exchanging -> terminal)
// and the resulting session committed. A missing, consumed or rejected code
// fails the flow without touching the session.
func (m *Manager) CompleteSSOLogin(ctx context.Context, uckey string) (*auth.UserProfile, error) {
	if !m.loginGate.TryAcquire(1) {
		return nil, auth.NewError(auth.KindExchangeFailed, "another login is already in progress", nil)
	}
	defer m.loginGate.Release(1)

	flow := nd99u.NewFlow(m.sso)
	record, err := flow.HandleCallback(ctx, uckey)
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, record)
}

// commit persists the record, updates the cached session, notifies listeners
// and pushes the token into the provider configuration, in that order.
func (m *Manager) commit(ctx context.Context, record *auth.Record) (*auth.UserProfile, error) {
	// Local I/O failure, not part of the auth error taxonomy: surface it
	// unclassified so it is not mistaken for a backend problem.
	if err := m.store.Write(record); err != nil {
		return nil, fmt.Errorf("session: persist login failed: %w", err)
	}

	m.mu.Lock()
	m.session = record.Session()
	m.token = record.AccessToken
	session := m.session
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	notify(listeners, session)
	log.Infof("session: user %s logged in via %s", record.User.Username, record.User.Provider)

	if m.sync != nil {
		if err := m.sync.OnLogin(ctx, record.AccessToken); err != nil {
			log.Warnf("session: provider config push failed: %v", err)
			profile := record.User
			return &profile, auth.NewError(auth.KindConfigSync, "logged in, but updating provider configuration failed", err)
		}
	}

	profile := record.User
	return &profile, nil
}

// Logout clears the local session unconditionally. The remote invalidation
// call and the configuration clear are best-effort: their failures are
// logged (and the config failure returned as a KindConfigSync warning) but
// the local session never stays logged in with an unusable token. Safe to
// call repeatedly.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	wasLoggedIn := m.session.IsLoggedIn
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		// Keep going: the cached state still flips to logged out so the UI
		// cannot keep using a token we failed to delete.
		log.Errorf("session: clearing token store failed: %v", err)
	}

	m.mu.Lock()
	m.session = auth.Session{}
	m.token = ""
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	if wasLoggedIn {
		notify(listeners, auth.Session{})
		log.Info("session: logged out")
	}

	if token != "" && m.primary != nil {
		m.primary.Logout(ctx, token)
	}

	if m.sync != nil {
		if err := m.sync.OnLogout(ctx, token); err != nil {
			log.Warnf("session: provider config clear failed: %v", err)
			return auth.NewError(auth.KindConfigSync, "logged out, but clearing provider configuration failed", err)
		}
	}
	return nil
}

// Refresh re-reads the token store and, when the persisted state differs
// from the cached one, updates it and notifies listeners. Used after an
// external writer (the callback page of another instance) touched the store.
func (m *Manager) Refresh() {
	record, err := m.store.Read()
	if err != nil {
		log.Warnf("session: refresh read failed: %v", err)
		return
	}

	m.mu.Lock()
	newSession := record.Session()
	newToken := ""
	if record != nil {
		newToken = record.AccessToken
	}
	if newToken == m.token && newSession.IsLoggedIn == m.session.IsLoggedIn {
		m.mu.Unlock()
		return
	}
	m.session = newSession
	m.token = newToken
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	notify(listeners, newSession)
}

func (m *Manager) snapshotListenersLocked() []Listener {
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, session auth.Session) {
	for _, listener := range listeners {
		listener(session)
	}
}
