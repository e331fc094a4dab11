package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feitianbubu/jaaz/internal/client"
	"github.com/feitianbubu/jaaz/internal/config"
)

func TestFormatBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		num  float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{2_300_000, "2.3M"},
		{4_000_000_000, "4.0B"},
		{1000, "1.0K"},
		{999_999, "1000.0K"},
	}

	for _, tt := range tests {
		if got := FormatBalance(tt.num); got != tt.want {
			t.Errorf("FormatBalance(%v) = %q, want %q", tt.num, got, tt.want)
		}
	}
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := &config.Config{BaseAPIURL: ts.URL}
	return NewFetcher(client.New(cfg, func() string { return "tok" }))
}

func TestBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"verbatim balance field", `{"balance": "$ 12.50"}`, "$ 12.50"},
		{"quota fallback", `{"data": {"quota": 1500}}`, "1.5K"},
		{"missing quota defaults to zero", `{"data": {}}`, "0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q, want bearer token", got)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := fetcher.Balance(context.Background())
			if err != nil {
				t.Fatalf("Balance() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Balance() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBalanceBackendError(t *testing.T) {
	t.Parallel()

	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := fetcher.Balance(context.Background()); err == nil {
		t.Fatal("Balance() succeeded on a 401 response")
	}
}
