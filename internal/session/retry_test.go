package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/session/internal/autherr"
	"github.com/adminkit/session/internal/models"
)

func rateLimited(retryAfter time.Duration) *autherr.Error {
	e := autherr.New("verify", autherr.KindRateLimit, "rate limited")
	e.RetryAfter = retryAfter
	return e
}

func TestRetryInitialization_RateLimitWindowRefusedLocally(t *testing.T) {
	f := &fakeAPI{
		verifyFn: func(string) (*models.User, error) { return nil, rateLimited(time.Minute) },
	}
	store := storeWith(t, models.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	m := newTestManager(f, store, true)

	st, err := m.Initialize(context.Background())
	require.Error(t, err)
	require.Equal(t, ModeError, st.Mode)
	require.Equal(t, autherr.KindRateLimit, st.Err.Kind)

	_, verifyBefore, _, _ := f.calls()

	// Within the Retry-After window the retry is refused without touching
	// the network.
	st, err = m.RetryInitialization(context.Background())
	require.Error(t, err)
	assert.Equal(t, ModeError, st.Mode)

	_, verifyAfter, _, _ := f.calls()
	assert.Equal(t, verifyBefore, verifyAfter, "no network call inside the rate-limit window")

	// Once the window has elapsed the retry goes through.
	f.mu.Lock()
	f.verifyFn = func(string) (*models.User, error) { return goldUser(), nil }
	f.mu.Unlock()
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	st, err = m.RetryInitialization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeAuthenticated, st.Mode)
}

func TestRetryInitialization_ServerErrorRecovers(t *testing.T) {
	calls := 0
	f := &fakeAPI{}
	f.verifyFn = func(string) (*models.User, error) {
		calls++
		if calls == 1 {
			return nil, autherr.New("verify", autherr.KindServer, "server error 503")
		}
		return goldUser(), nil
	}
	store := storeWith(t, models.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	m := newTestManager(f, store, true)

	st, err := m.Initialize(context.Background())
	require.Error(t, err)
	require.Equal(t, ModeError, st.Mode)

	st, err = m.RetryInitialization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeAuthenticated, st.Mode)
	assert.Equal(t, 2, calls)
}

func TestRetryInitialization_ServerErrorAttemptsBounded(t *testing.T) {
	f := &fakeAPI{
		verifyFn: func(string) (*models.User, error) {
			return nil, autherr.New("verify", autherr.KindServer, "server error 503")
		},
	}
	store := storeWith(t, models.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	m := newTestManager(f, store, true)

	_, err := m.Initialize(context.Background())
	require.Error(t, err)

	_, err = m.RetryInitialization(context.Background())
	require.Error(t, err)

	_, verify, _, _ := f.calls()
	assert.Equal(t, 1+retryMaxAttempts, verify, "backoff retries are bounded")

	st := m.CurrentState()
	assert.Equal(t, ModeError, st.Mode)
	pair := storedPair(t, store)
	require.NotNil(t, pair, "server errors never clear tokens")
}

func TestRetryInitialization_OtherErrorsRetryOnce(t *testing.T) {
	calls := 0
	f := &fakeAPI{}
	f.verifyFn = func(string) (*models.User, error) {
		calls++
		if calls == 1 {
			return nil, autherr.New("verify", autherr.KindNetwork, "connection refused")
		}
		return goldUser(), nil
	}
	store := storeWith(t, models.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	m := newTestManager(f, store, true)

	_, err := m.Initialize(context.Background())
	require.Error(t, err)

	st, err := m.RetryInitialization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeAuthenticated, st.Mode)
	assert.Equal(t, 2, st.InitAttempts)
}
