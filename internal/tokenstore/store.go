// Package tokenstore persists the bearer token pair between runs.
//
// The store is deliberately dumb: string-keyed values, last writer wins,
// written only by the session manager. When the persistent backing cannot
// be opened the SDK degrades to an in-memory store for the lifetime of the
// process rather than failing.
package tokenstore

import (
	"context"

	"github.com/adminkit/session/internal/models"
)

// Storage keys. KeyRefreshLegacy is a read-only alias kept for stores
// written by older releases.
const (
	KeyAccess        = "admin_token"
	KeyRefresh       = "admin_refresh_token"
	KeyRefreshLegacy = "refresh_token"
	keyExpires       = "admin_token_expires"
)

// Store is the persistence contract for the token pair.
//
// Get returns nil (not an error) when no pair is stored. Set overwrites any
// existing pair. Clear is idempotent.
type Store interface {
	Get(ctx context.Context) (*models.TokenPair, error)
	Set(ctx context.Context, pair models.TokenPair) error
	Clear(ctx context.Context) error
}
