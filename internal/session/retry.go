package session

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/adminkit/session/internal/autherr"
)

// Backoff bounds for server-error retries. Attempts are bounded; the
// manager never retries indefinitely on its own.
const (
	retryBaseDelay   = 500 * time.Millisecond
	retryMaxAttempts = 3
)

// RetryInitialization is the explicit "try again" action offered by the UI
// when the session settled in error mode.
//
// Policy per error kind:
//   - rate-limit: refused locally until the server-given Retry-After window
//     has elapsed since the error was recorded.
//   - server-error: up to retryMaxAttempts passes with exponential backoff.
//   - anything else: a single fresh initialization pass.
func (m *Manager) RetryInitialization(ctx context.Context) (State, error) {
	st := m.CurrentState()

	if st.Err != nil && st.Err.Kind == autherr.KindRateLimit && st.Err.RetryAfter > 0 {
		if wait := st.Err.RetryAfter - m.now().Sub(st.Err.Timestamp); wait > 0 {
			return st, st.Err
		}
	}

	if st.Err == nil || st.Err.Kind != autherr.KindServer {
		return m.Initialize(ctx)
	}

	b := retry.WithMaxRetries(retryMaxAttempts-1, retry.NewExponential(retryBaseDelay))
	var out State
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		s, ierr := m.Initialize(ctx)
		out = s
		if ierr == nil {
			return nil
		}
		var ae *autherr.Error
		if errors.As(ierr, &ae) && ae.Kind == autherr.KindServer {
			return retry.RetryableError(ierr)
		}
		return ierr
	})
	return out, err
}
