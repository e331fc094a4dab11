package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/auth/nd99u"
	"github.com/feitianbubu/jaaz/internal/auth/primary"
	"github.com/feitianbubu/jaaz/internal/config"
)

type fakeSync struct {
	mu        sync.Mutex
	loginErr  error
	logoutErr error
	logins    []string
	logouts   []string
}

func (f *fakeSync) OnLogin(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, token)
	return f.loginErr
}

func (f *fakeSync) OnLogout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, token)
	return f.logoutErr
}

const loginOK = `{"success":true,"data":{"id":42,"username":"lin","email":"lin@example.com","access_token":"tok-primary","role":1}}`

func newTestManager(t *testing.T, backend http.HandlerFunc, syncer Synchronizer) (*Manager, *auth.TokenStore) {
	t.Helper()
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		BaseAPIURL: ts.URL,
		SSO: config.SSOConfig{
			AuthURL:      "https://uc-component.101.com",
			ClientID:     "client-1234",
			CallbackPath: "/99u-callback",
			VerifyURL:    ts.URL + "/api/oauth/nd99u",
			Lang:         "zh-CN",
		},
	}
	store := auth.NewTokenStore(filepath.Join(t.TempDir(), "session.json"))
	return NewManager(store, primary.NewAuth(cfg), nd99u.NewAuth(cfg), syncer), store
}

func TestLoginWithPrimaryCommitOrder(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginOK))
	}, &fakeSync{})

	var notified []auth.Session
	unsubscribe := m.Subscribe(func(s auth.Session) {
		// The store must already hold the new record when listeners fire.
		record, err := store.Read()
		if err != nil || record == nil {
			t.Errorf("store not readable at notify time: record=%v err=%v", record, err)
		}
		notified = append(notified, s)
	})
	defer unsubscribe()

	profile, err := m.LoginWithPrimary(context.Background(), primary.Credentials{Username: "lin", Password: "pw"})
	if err != nil {
		t.Fatalf("LoginWithPrimary() failed: %v", err)
	}
	if profile.ID != "42" || profile.Username != "lin" || profile.Provider != "jaaz" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if len(notified) != 1 || !notified[0].IsLoggedIn {
		t.Fatalf("notifications = %+v, want one logged-in session", notified)
	}
	if !m.Status().IsLoggedIn {
		t.Error("Status() not logged in after commit")
	}
	if m.AccessToken() != "tok-primary" {
		t.Errorf("AccessToken() = %q, want tok-primary", m.AccessToken())
	}
}

func TestFailedLoginLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"bad password"}`))
	}, &fakeSync{})

	var notifications int
	defer m.Subscribe(func(auth.Session) { notifications++ })()

	_, err := m.LoginWithPrimary(context.Background(), primary.Credentials{Username: "lin", Password: "wrong"})
	if auth.KindOf(err) != auth.KindRejectedCredentials {
		t.Fatalf("kind = %q, want %q", auth.KindOf(err), auth.KindRejectedCredentials)
	}
	if auth.DisplayMessage(err) != "bad password" {
		t.Errorf("message = %q, want backend message", auth.DisplayMessage(err))
	}
	if notifications != 0 {
		t.Errorf("listeners fired %d times on failed login", notifications)
	}
	if m.Status().IsLoggedIn {
		t.Error("failed login flipped Status() to logged in")
	}
	if record, readErr := store.Read(); readErr != nil || record != nil {
		t.Errorf("failed login touched the store: record=%v err=%v", record, readErr)
	}
}

func TestCompleteSSOLoginSingleUseCode(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":9,"username":"sso-user","access_token":"tok-sso"}}`))
	}, &fakeSync{})

	profile, err := m.CompleteSSOLogin(context.Background(), "uc-key")
	if err != nil {
		t.Fatalf("CompleteSSOLogin() failed: %v", err)
	}
	if profile.Provider != "99u" || profile.Email != "" {
		t.Errorf("profile not normalized: %+v", profile)
	}

	// Replaying the same uckey fails and leaves the committed session alone.
	if _, err = m.CompleteSSOLogin(context.Background(), "uc-key"); auth.KindOf(err) != auth.KindExchangeFailed {
		t.Fatalf("replay kind = %q, want %q", auth.KindOf(err), auth.KindExchangeFailed)
	}
	if m.AccessToken() != "tok-sso" {
		t.Errorf("replay disturbed the session: token = %q", m.AccessToken())
	}
}

func TestCompleteSSOLoginMissingCode(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, &fakeSync{})

	// A callback without a uckey fails the flow before any endpoint contact.
	_, err := m.CompleteSSOLogin(context.Background(), "")
	if auth.KindOf(err) != auth.KindMissingCode {
		t.Fatalf("kind = %q, want %q", auth.KindOf(err), auth.KindMissingCode)
	}
	if calls.Load() != 0 {
		t.Errorf("verify endpoint called %d times, want 0", calls.Load())
	}
	if m.Status().IsLoggedIn {
		t.Error("missing code flipped Status() to logged in")
	}
	if record, readErr := store.Read(); readErr != nil || record != nil {
		t.Errorf("missing code touched the store: record=%v err=%v", record, readErr)
	}
}

func TestLoginPersistFailureIsUnclassified(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginOK))
	}))
	t.Cleanup(ts.Close)
	cfg := &config.Config{BaseAPIURL: ts.URL}

	// A regular file where the store expects its directory makes every
	// write fail with a local I/O error.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := auth.NewTokenStore(filepath.Join(blocker, "session.json"))
	m := NewManager(store, primary.NewAuth(cfg), nd99u.NewAuth(cfg), &fakeSync{})

	_, err := m.LoginWithPrimary(context.Background(), primary.Credentials{Username: "lin", Password: "pw"})
	if err == nil {
		t.Fatal("login succeeded despite unwritable store")
	}
	// Local persistence failures are not part of the auth taxonomy.
	if kind := auth.KindOf(err); kind != auth.Kind("") {
		t.Errorf("kind = %q, want unclassified", kind)
	}
	if m.Status().IsLoggedIn {
		t.Error("failed persist flipped Status() to logged in")
	}
}

func TestLogoutClearsDespiteDeadRemote(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/user/logout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(loginOK))
	}, &fakeSync{})

	if _, err := m.LoginWithPrimary(context.Background(), primary.Credentials{Username: "lin", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var notifications int
	defer m.Subscribe(func(s auth.Session) {
		notifications++
		if s.IsLoggedIn {
			t.Error("logout notification still logged in")
		}
	})()

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() failed: %v", err)
	}
	if m.Status().IsLoggedIn || m.AccessToken() != "" {
		t.Error("cached state still logged in after logout")
	}
	if record, err := store.Read(); err != nil || record != nil {
		t.Errorf("store not cleared: record=%v err=%v", record, err)
	}
	if notifications != 1 {
		t.Fatalf("notifications = %d, want 1", notifications)
	}

	// Repeating the logout is a no-op and stays silent.
	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout() failed: %v", err)
	}
	if notifications != 1 {
		t.Errorf("idempotent logout notified again: %d", notifications)
	}
}

func TestConfigSyncFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	syncer := &fakeSync{loginErr: os.ErrPermission}
	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginOK))
	}, syncer)

	profile, err := m.LoginWithPrimary(context.Background(), primary.Credentials{Username: "lin", Password: "pw"})
	if auth.KindOf(err) != auth.KindConfigSync {
		t.Fatalf("kind = %q, want %q", auth.KindOf(err), auth.KindConfigSync)
	}
	if profile == nil || profile.Username != "lin" {
		t.Fatalf("profile = %+v, want the committed user despite sync failure", profile)
	}
	if !m.Status().IsLoggedIn {
		t.Error("sync failure rolled back the session")
	}
	if record, readErr := store.Read(); readErr != nil || record == nil {
		t.Errorf("sync failure rolled back the store: record=%v err=%v", record, readErr)
	}
	if len(syncer.logins) != 1 || syncer.logins[0] != "tok-primary" {
		t.Errorf("sync calls = %v, want one with the new token", syncer.logins)
	}
}

func TestRefreshNotifiesOnlyOnChange(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {}, &fakeSync{})

	var notifications int
	defer m.Subscribe(func(auth.Session) { notifications++ })()

	// Another process wrote the session file behind the manager's back.
	external := auth.NewTokenStore(store.Path())
	record := &auth.Record{
		AccessToken: "tok-external",
		User:        auth.UserProfile{ID: "7", Username: "other", Provider: "jaaz"},
	}
	if err := external.Write(record); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	m.Refresh()
	if notifications != 1 {
		t.Fatalf("notifications after external write = %d, want 1", notifications)
	}
	if m.AccessToken() != "tok-external" {
		t.Errorf("AccessToken() = %q, want tok-external", m.AccessToken())
	}

	// A burst of watcher events for the same content stays quiet.
	m.Refresh()
	m.Refresh()
	if notifications != 1 {
		t.Errorf("redundant refreshes notified: %d", notifications)
	}
}

func TestNewManagerDiscardsCorruptRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := auth.NewTokenStore(path)
	m := NewManager(store, nil, nil, nil)

	if m.Status().IsLoggedIn {
		t.Error("corrupt record produced a logged-in session")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt session file not cleared: %v", err)
	}
}
