package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// claimExpiry extracts the unix expiry claim from an access token
// without verifying its signature — the upstream backend is the
// authority on validity, we only need the timestamp. Returns 0 when
// the token does not parse.
func claimExpiry(accessToken string) int64 {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
