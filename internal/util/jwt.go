package util

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// jwtParser decodes without verifying: the backend signed the token and is
// the only party that validates it; locally we only need claim extraction.
var jwtParser = jwt.NewParser()

// DecodeJWTClaims extracts the payload claims from a JWT without verifying
// its signature.
func DecodeJWTClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwtParser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("jwt: decode payload failed: %w", err)
	}
	return claims, nil
}

// ExtractUserID returns the user_id claim from a jaaz JWT, or an empty string
// when the token carries none.
func ExtractUserID(token string) string {
	claims, err := DecodeJWTClaims(token)
	if err != nil {
		return ""
	}
	return stringClaim(claims, "user_id")
}

// ExtractUsername returns the username claim from a jaaz JWT.
func ExtractUsername(token string) string {
	claims, err := DecodeJWTClaims(token)
	if err != nil {
		return ""
	}
	return stringClaim(claims, "username")
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		// Numeric ids arrive as JSON numbers.
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
