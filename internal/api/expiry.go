package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry extracts the exp claim from a JWT access token without
// verifying the signature. The token stays an opaque credential as far as
// trust is concerned; the expiry is only a hint that lets the manager skip
// a verify call that is guaranteed to come back 401.
//
// Returns the zero time for non-JWT or claimless tokens.
func tokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
