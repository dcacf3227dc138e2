package sync

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry timestamp from a bearer token without
// verifying its signature; the agent never validates tokens, it only surfaces
// the expiry for display. Returns nil when the token carries no exp claim.
func TokenExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading token expiry: %w", err)
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time.UTC()
	return &t, nil
}
