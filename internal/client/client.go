// Package client provides the authenticated HTTP wrapper for calls to the
// jaaz backend. It is the single place the Authorization header is attached;
// components needing authenticated requests go through this client instead of
// building their own.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/util"
)

// TokenFunc supplies the current bearer token, or an empty string when no
// user is logged in.
type TokenFunc func() string

// Client wraps an HTTP client with base URL resolution and bearer injection.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
}

// New builds a backend client with proxy-aware transport. token may be nil
// for purely anonymous use.
func New(cfg *config.Config, token TokenFunc) *Client {
	httpClient := util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second})
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseAPIURL, "/"),
		token:      token,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes a request against the backend. path may be absolute or relative
// to the base URL. The Authorization header is attached when a token is
// available; body may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		endpoint = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("backend client: create request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if token := strings.TrimSpace(c.token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend client: request failed: %w", err)
	}
	return resp, nil
}

// DoJSON executes a request and returns the response body, enforcing a 2xx
// status. Non-2xx responses return the body alongside the error so callers
// can surface backend messages.
func (c *Client) DoJSON(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend client: read response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return payload, fmt.Errorf("backend client: %s %s: status %d", method, path, resp.StatusCode)
	}
	return payload, nil
}
