// Package billing derives the human-readable account balance from the
// backend account endpoint.
package billing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/feitianbubu/jaaz/internal/client"
	"github.com/tidwall/gjson"
)

const selfPath = "/api/user/self"

// Fetcher retrieves the account balance over the authenticated client.
type Fetcher struct {
	backend *client.Client
}

// NewFetcher builds a balance fetcher.
func NewFetcher(backend *client.Client) *Fetcher {
	return &Fetcher{backend: backend}
}

// Balance calls the account endpoint and returns the display string. A
// pre-formatted balance field is used verbatim; otherwise the raw quota
// (0 when absent) is formatted with K/M/B suffixes.
func (f *Fetcher) Balance(ctx context.Context) (string, error) {
	body, err := f.backend.DoJSON(ctx, http.MethodGet, selfPath, nil)
	if err != nil {
		return "", fmt.Errorf("billing: fetch balance failed: %w", err)
	}

	result := gjson.ParseBytes(body)
	if balance := strings.TrimSpace(result.Get("balance").String()); balance != "" {
		return balance, nil
	}
	return FormatBalance(result.Get("data.quota").Float()), nil
}

// FormatBalance renders a raw quota with K/M/B suffixes at the 1e3/1e6/1e9
// thresholds, one decimal place, no suffix below 1000.
func FormatBalance(num float64) string {
	switch {
	case num >= 1_000_000_000:
		return strconv.FormatFloat(num/1_000_000_000, 'f', 1, 64) + "B"
	case num >= 1_000_000:
		return strconv.FormatFloat(num/1_000_000, 'f', 1, 64) + "M"
	case num >= 1_000:
		return strconv.FormatFloat(num/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
}
