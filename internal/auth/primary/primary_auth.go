// Package primary implements the jaaz username/password login flow against
// the application backend. It exchanges credentials for a bearer token plus
// profile and performs the best-effort remote token invalidation on logout.
package primary

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/constant"
	"github.com/feitianbubu/jaaz/internal/util"
	log "github.com/sirupsen/logrus"
)

const (
	loginPath  = "/api/user/login"
	logoutPath = "/api/user/logout"
)

// Credentials carries the primary login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Auth encapsulates the HTTP helpers for the primary login flow.
type Auth struct {
	httpClient *http.Client
	baseURL    string
}

// NewAuth constructs the flow with proxy-aware transport.
func NewAuth(cfg *config.Config) *Auth {
	httpClient := util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second})
	return &Auth{httpClient: httpClient, baseURL: strings.TrimRight(cfg.BaseAPIURL, "/")}
}

// loginResponse models the backend login endpoint payload.
type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID          json.Number `json:"id"`
		Username    string      `json:"username"`
		Email       string      `json:"email"`
		ImageURL    string      `json:"image_url"`
		Role        int         `json:"role"`
		AccessToken string      `json:"access_token"`
	} `json:"data"`
}

// Login submits credentials and returns the persisted record on success. A
// failed login never yields a partial record: either both token and profile
// are present, or an error is returned.
func (a *Auth) Login(ctx context.Context, creds Credentials) (*auth.Record, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "encode login request failed", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+loginPath, strings.NewReader(string(body)))
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "create login request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "login request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result loginResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, auth.NewError(auth.KindNetwork, "decode login response failed", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || !result.Success {
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = "invalid username or password"
		}
		return nil, auth.NewError(auth.KindRejectedCredentials, message, nil)
	}
	if result.Data.AccessToken == "" || result.Data.Username == "" {
		return nil, auth.NewError(auth.KindRejectedCredentials, "login response missing token or username", nil)
	}

	record := &auth.Record{
		AccessToken: result.Data.AccessToken,
		User: auth.UserProfile{
			ID:       result.Data.ID.String(),
			Username: result.Data.Username,
			Email:    result.Data.Email,
			ImageURL: result.Data.ImageURL,
			Provider: constant.ProviderPrimary,
			Role:     result.Data.Role,
		},
	}
	return record, nil
}

// Logout requests server-side token invalidation. Failures are logged and
// swallowed: the local session must clear regardless of backend health.
func (a *Auth) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+logoutPath, nil)
	if err != nil {
		log.Debugf("primary logout: create request failed: %v", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Warnf("primary logout: remote invalidation failed: %v", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		log.Warnf("primary logout: remote invalidation returned status %d", resp.StatusCode)
	}
}
