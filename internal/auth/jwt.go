package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseJWTClaims decodes the payload segment of a JWT without verifying the signature.
func ParseJWTClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidJWT
	}
	payload := parts[1]
	// Add base64url padding
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJWT, err)
	}
	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJWT, err)
	}
	return claims, nil
}

// TokenExpiry returns the exp claim of a JWT, or the zero time when the token
// is opaque or carries no expiry.
func TokenExpiry(token string) time.Time {
	claims, err := ParseJWTClaims(token)
	if err != nil {
		return time.Time{}
	}
	exp, ok := claims["exp"].(float64)
	if !ok || exp <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(exp), 0)
}

// AuthClaim returns a string field of the "https://api.openai.com/auth" claim.
func AuthClaim(claims map[string]any, key string) string {
	authClaims, ok := claims["https://api.openai.com/auth"].(map[string]any)
	if !ok {
		return ""
	}
	v, _ := authClaims[key].(string)
	return v
}
