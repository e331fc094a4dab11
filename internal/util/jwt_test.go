package util

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return token
}

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"string id", jwt.MapClaims{"user_id": "42"}, "42"},
		{"numeric id", jwt.MapClaims{"user_id": 42}, "42"},
		{"missing claim", jwt.MapClaims{"sub": "42"}, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractUserID(sign(t, tt.claims)); got != tt.want {
				t.Errorf("ExtractUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFromMalformedToken(t *testing.T) {
	t.Parallel()

	if got := ExtractUserID("not-a-jwt"); got != "" {
		t.Errorf("ExtractUserID(opaque) = %q, want empty", got)
	}
	if got := ExtractUsername(""); got != "" {
		t.Errorf("ExtractUsername(empty) = %q, want empty", got)
	}
}

func TestExtractUsername(t *testing.T) {
	t.Parallel()

	token := sign(t, jwt.MapClaims{"user_id": "42", "username": "lin"})
	if got := ExtractUsername(token); got != "lin" {
		t.Errorf("ExtractUsername() = %q, want lin", got)
	}
}
