// Package nd99u implements the 99u SSO login flow. The browser is sent to
// the identity provider with a fixed parameter contract; the provider
// redirects back to the callback path with a single-use uckey which is
// exchanged server-side for a bearer token and a normalized profile.
package nd99u

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/constant"
	"github.com/feitianbubu/jaaz/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Auth encapsulates the HTTP helpers for the 99u OAuth-style flow.
type Auth struct {
	httpClient *http.Client
	sso        config.SSOConfig

	mu       sync.Mutex
	consumed map[string]struct{}
}

// NewAuth constructs the flow helper with proxy-aware transport.
func NewAuth(cfg *config.Config) *Auth {
	httpClient := util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second})
	return &Auth{
		httpClient: httpClient,
		sso:        cfg.SSO,
		consumed:   make(map[string]struct{}),
	}
}

// AuthorizationURL builds the identity-provider login URL carrying the fixed
// parameter contract, pointing the provider back at redirectURI.
func (a *Auth) AuthorizationURL(redirectURI string) string {
	values := url.Values{}
	values.Set("re_login", "true")
	values.Set("redirect_type", "window")
	values.Set("send_uckey", "true")
	values.Set("redirect_uri", redirectURI)
	values.Set("sdp-app-id", a.sso.ClientID)
	values.Set("lang", a.sso.Lang)
	return fmt.Sprintf("%s/?%s#/login", strings.TrimRight(a.sso.AuthURL, "/"), values.Encode())
}

// CallbackPath returns the local path the provider redirects back to.
func (a *Auth) CallbackPath() string {
	return a.sso.CallbackPath
}

// ExchangeCode submits the single-use uckey to the verification endpoint and
// returns the normalized session record. A code is consumed on first use;
// submitting it again fails without contacting the endpoint, so a failed
// exchange always requires restarting the flow from the login redirect.
func (a *Auth) ExchangeCode(ctx context.Context, uckey string) (*auth.Record, error) {
	uckey = strings.TrimSpace(uckey)
	if uckey == "" {
		return nil, auth.NewError(auth.KindMissingCode, "missing uckey parameter", nil)
	}
	if !a.markConsumed(uckey) {
		return nil, auth.NewError(auth.KindExchangeFailed, "authorization code already used", nil)
	}

	endpoint := fmt.Sprintf("%s?code=%s", a.sso.VerifyURL, url.QueryEscape(uckey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "create verify request failed", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "verify request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, auth.NewError(auth.KindNetwork, "read verify response failed", err)
	}

	result := gjson.ParseBytes(body)
	if resp.StatusCode != http.StatusOK || !result.Get("success").Bool() {
		message := strings.TrimSpace(result.Get("message").String())
		if message == "" {
			message = "verification failed"
		}
		log.Debugf("nd99u verify rejected: status=%d", resp.StatusCode)
		return nil, auth.NewError(auth.KindExchangeFailed, message, nil)
	}

	data := result.Get("data")
	accessToken := data.Get("access_token").String()
	username := data.Get("username").String()
	userID := data.Get("id").String()
	if accessToken == "" || username == "" || userID == "" {
		return nil, auth.NewError(auth.KindExchangeFailed, "verify response missing token, id or username", nil)
	}

	// 99u supplies no email or avatar; normalize to empty so downstream
	// consumers never branch on provider type.
	record := &auth.Record{
		AccessToken: accessToken,
		User: auth.UserProfile{
			ID:       userID,
			Username: username,
			Email:    "",
			ImageURL: "",
			Provider: constant.ProviderND99U,
			Role:     int(data.Get("role").Int()),
		},
	}
	return record, nil
}

// markConsumed records the code as used, reporting whether it was fresh.
func (a *Auth) markConsumed(uckey string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.consumed[uckey]; ok {
		return false
	}
	a.consumed[uckey] = struct{}{}
	return true
}
