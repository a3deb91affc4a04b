// Package session owns the client-side authentication state machine: one
// live State per Manager, mutated only by the Manager's own methods and
// published to subscribers as immutable snapshots.
package session

import (
	"time"

	"github.com/adminkit/session/internal/autherr"
	"github.com/adminkit/session/internal/models"
)

// Mode is the coarse classification the UI switches on.
type Mode string

const (
	// ModeInitializing is the placeholder state before the first
	// initialization pass resolves.
	ModeInitializing Mode = "initializing"

	// ModeAuthenticated means a verified user session exists.
	ModeAuthenticated Mode = "authenticated"

	// ModeGuest is the degraded, unauthenticated mode with a restricted
	// feature allow-list.
	ModeGuest Mode = "guest"

	// ModeError means the last initialization attempt failed in a way that
	// needs an explicit retry (or re-login) to leave.
	ModeError Mode = "error"
)

// State is a snapshot of the session.
//
// Invariants, maintained by the Manager:
//   - IsAuthenticated is true iff User is non-nil, and then Mode is
//     ModeAuthenticated.
//   - Mode == ModeGuest implies User == nil.
//   - Err is cleared on every successful transition.
type State struct {
	Mode            Mode
	IsInitialized   bool
	IsAuthenticated bool
	IsLoading       bool
	User            *models.User
	Err             *autherr.Error

	// Retry bookkeeping. The Manager never loops on its own; attempts are
	// counted so the caller can decide when to stop offering a retry.
	LastInitAttempt time.Time
	InitAttempts    int
}

// clone deep-copies the snapshot so subscribers can never reach the
// Manager's live pointers.
func (s State) clone() State {
	c := s
	c.User = s.User.Clone()
	c.Err = s.Err.Clone()
	return c
}

// equal reports whether two snapshots are observably identical. Used to
// suppress notifications for no-op mutations.
func (s State) equal(o State) bool {
	if s.Mode != o.Mode ||
		s.IsInitialized != o.IsInitialized ||
		s.IsAuthenticated != o.IsAuthenticated ||
		s.IsLoading != o.IsLoading ||
		s.InitAttempts != o.InitAttempts ||
		!s.LastInitAttempt.Equal(o.LastInitAttempt) {
		return false
	}
	return userEqual(s.User, o.User) && errEqual(s.Err, o.Err)
}

func userEqual(a, b *models.User) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.ID != b.ID || a.Username != b.Username || a.Email != b.Email ||
		a.Role != b.Role || a.Tier != b.Tier ||
		a.AnalysisCount != b.AnalysisCount || a.AnalysisLimit != b.AnalysisLimit ||
		len(a.Permissions) != len(b.Permissions) {
		return false
	}
	for i := range a.Permissions {
		if a.Permissions[i] != b.Permissions[i] {
			return false
		}
	}
	return true
}

func errEqual(a, b *autherr.Error) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Kind == b.Kind && a.Message == b.Message && a.Op == b.Op &&
		a.Recoverable == b.Recoverable && a.Timestamp.Equal(b.Timestamp)
}
