// Package api implements the HTTP client for the backend's admin auth
// endpoints. All failures are normalized into *autherr.Error before they
// leave this package.
package api

import (
	"context"

	"github.com/adminkit/session/internal/models"
)

// Client is the remote auth API surface consumed by the session manager.
//
// Contract:
//   - Login: exchange credentials for a token pair (and the user, when the
//     backend includes it in the response).
//   - Verify: resolve the bearer token to its user; fails with an
//     unauthorized-class error when the token is invalid or expired.
//   - Refresh: exchange the refresh token for a fresh pair; an
//     unauthorized-class failure here is terminal.
//   - Logout: best-effort server-side session invalidation.
//
// All methods honor context cancellation and apply a bounded timeout.
type Client interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Verify(ctx context.Context, accessToken string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// LoginResult is what a successful login yields. User may be nil when the
// backend returns tokens only; callers then follow up with Verify.
type LoginResult struct {
	Tokens models.TokenPair
	User   *models.User
}
