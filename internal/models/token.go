package models

import "time"

// TokenPair is the bearer credential pair issued by login and refresh.
// Both tokens are opaque strings; ExpiresAt is advisory (derived from the
// access token's exp claim when present) and may be zero.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Empty reports whether no usable credential is present.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Expired reports whether the access token is known to be past its expiry
// at the given instant. A zero ExpiresAt means the expiry is unknown and
// the token is treated as live until the server says otherwise.
func (p TokenPair) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
