package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adminkit/session/internal/api"
	"github.com/adminkit/session/internal/autherr"
	"github.com/adminkit/session/internal/logging"
	"github.com/adminkit/session/internal/models"
	"github.com/adminkit/session/internal/tokenstore"
)

// ErrSuperseded is returned when an async operation resolved after the
// session it belonged to was invalidated (logout, Close). Its result was
// discarded; the caller should re-read CurrentState.
var ErrSuperseded = errors.New("session: operation superseded")

// Singleflight keys. One in-flight operation per kind; concurrent callers
// attach to the pending one instead of issuing duplicate network calls.
const (
	opInitialize = "initialize"
	opRefresh    = "refresh"
)

// Config tunes a Manager.
type Config struct {
	// AllowGuest selects the fallback when no valid session can be
	// established: guest mode when true, error mode when false.
	AllowGuest bool

	// Logger defaults to a nop logger.
	Logger logging.Logger
}

// Manager owns the authentication state machine. It is safe for concurrent
// use; all mutations of the live State go through it.
type Manager struct {
	api        api.Client
	store      tokenstore.Store
	allowGuest bool
	log        logging.Logger
	now        func() time.Time

	mu    sync.Mutex
	state State
	gen   uint64

	subsMu  sync.Mutex
	subs    map[uint64]func(State)
	subIDs  []uint64
	nextSub uint64

	flight singleflight.Group
}

// NewManager wires a Manager to its API client and token store. The
// initial state is the ModeInitializing placeholder, available
// synchronously via CurrentState before the first Initialize resolves.
func NewManager(client api.Client, store tokenstore.Store, cfg Config) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{
		api:        client,
		store:      store,
		allowGuest: cfg.AllowGuest,
		log:        log,
		now:        time.Now,
		state:      State{Mode: ModeInitializing},
		subs:       make(map[uint64]func(State)),
	}
}

// CurrentState returns a snapshot of the live state.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to be called with a snapshot after every state
// mutation, exactly once per mutation, in mutation order. The returned
// function cancels the subscription.
//
// Callbacks run synchronously on the mutating goroutine and must not call
// Manager action methods directly; dispatch to another goroutine instead.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subIDs = append(m.subIDs, id)
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
		for i, sid := range m.subIDs {
			if sid == id {
				m.subIDs = append(m.subIDs[:i], m.subIDs[i+1:]...)
				break
			}
		}
	}
}

// generation returns the current session generation. Results computed for
// an older generation are discarded, so a logout during an in-flight
// initialize or refresh cannot resurrect the session.
func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) invalidate() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
}

// apply mutates the live state and notifies subscribers, unless the
// snapshot would be unchanged or the generation moved on. The subscriber
// lock is taken before the state lock is released so deliveries observe
// mutations in order.
func (m *Manager) apply(gen uint64, mutate func(*State)) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	next := m.state.clone()
	mutate(&next)
	if m.state.equal(next) {
		m.mu.Unlock()
		return true
	}
	m.state = next
	snap := next.clone()
	m.subsMu.Lock()
	m.mu.Unlock()

	for _, id := range m.subIDs {
		if fn, ok := m.subs[id]; ok {
			fn(snap)
		}
	}
	m.subsMu.Unlock()
	return true
}

// Initialize runs one pass of the startup algorithm: read the store,
// verify, refresh once on a rejected credential, and settle in
// authenticated, guest, or error mode. Concurrent calls coalesce into a
// single pass. The manager never loops on failure; retries are explicit
// (RetryInitialization).
func (m *Manager) Initialize(ctx context.Context) (State, error) {
	_, err, _ := m.flight.Do(opInitialize, func() (any, error) {
		return nil, m.initialize(ctx)
	})
	return m.CurrentState(), err
}

func (m *Manager) initialize(ctx context.Context) error {
	gen := m.generation()
	m.apply(gen, func(s *State) {
		s.IsLoading = true
		s.InitAttempts++
		s.LastInitAttempt = m.now()
		if !s.IsInitialized || s.Mode == ModeError {
			s.Mode = ModeInitializing
		}
	})

	pair, err := m.store.Get(ctx)
	if err != nil {
		// Unreadable storage is treated as an absent credential, not a
		// fatal condition.
		m.log.Warn(ctx, "token store read failed", "error", err)
		pair = nil
	}

	if pair == nil || pair.Empty() {
		return m.finishInit(ctx, gen, nil, nil)
	}

	user, aerr := m.establish(ctx, gen, pair)
	return m.finishInit(ctx, gen, user, aerr)
}

// establish turns a stored token pair into a verified user, refreshing
// once when the credential is rejected. It decides token clearing; the
// caller decides the mode transition.
func (m *Manager) establish(ctx context.Context, gen uint64, pair *models.TokenPair) (*models.User, *autherr.Error) {
	// A locally known-expired access token would only buy us a guaranteed
	// 401 round trip; go straight to refresh.
	if !pair.Expired(m.now()) {
		user, err := m.api.Verify(ctx, pair.AccessToken)
		if err == nil {
			return user, nil
		}
		ae := autherr.As("verify", err)
		if !ae.CredentialRejected() {
			// Transient or otherwise inconclusive: the stored tokens may
			// still be valid, keep them for a manual retry.
			return nil, ae
		}
	}

	newPair, err := m.api.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		ae := autherr.As("refresh", err)
		if ae.CredentialRejected() {
			// The refresh token itself is dead. Nothing to salvage.
			if cerr := m.store.Clear(ctx); cerr != nil {
				m.log.Warn(ctx, "token store clear failed", "error", cerr)
			}
			return nil, ae.Terminal()
		}
		return nil, ae
	}

	// Do not write the fresh pair over a store that a concurrent logout
	// just cleared.
	if gen == m.generation() {
		if serr := m.store.Set(ctx, *newPair); serr != nil {
			m.log.Warn(ctx, "token store write failed", "error", serr)
		}
	}

	user, verr := m.api.Verify(ctx, newPair.AccessToken)
	if verr != nil {
		// One refresh per pass; a second rejection settles as an error.
		return nil, autherr.As("verify", verr)
	}
	return user, nil
}

// finishInit applies the terminal mutation of an initialization pass.
// IsInitialized and IsLoading are settled unconditionally, success or
// failure.
func (m *Manager) finishInit(ctx context.Context, gen uint64, user *models.User, aerr *autherr.Error) error {
	applied := m.apply(gen, func(s *State) {
		s.IsInitialized = true
		s.IsLoading = false

		if user != nil {
			s.Mode = ModeAuthenticated
			s.IsAuthenticated = true
			s.User = user
			s.Err = nil
			return
		}

		s.IsAuthenticated = false
		s.User = nil

		switch {
		case aerr == nil:
			// No stored credentials at all.
			if m.allowGuest {
				s.Mode = ModeGuest
				s.Err = nil
			} else {
				s.Mode = ModeError
				s.Err = autherr.New("initialize", autherr.KindUnauthorized, "authentication required")
			}

		case aerr.CredentialRejected() && !aerr.Recoverable:
			// Terminal refresh failure; tokens were cleared in establish.
			if m.allowGuest {
				s.Mode = ModeGuest
				s.Err = nil
			} else {
				s.Mode = ModeError
				s.Err = aerr
			}

		default:
			// Transient failure (or an unrefreshable rejection): tokens are
			// preserved so a manual retry can succeed without re-login.
			s.Mode = ModeError
			s.Err = aerr
		}
	})

	if !applied {
		m.log.Debug(ctx, "initialization result discarded", "reason", "superseded")
		return ErrSuperseded
	}
	if aerr != nil {
		return aerr
	}
	return nil
}

// Login exchanges credentials for a session. On failure the mode is left
// untouched (the login surface stays interactive) and only Err is set; on
// success the pair is persisted and the state becomes authenticated.
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	gen := m.generation()
	m.apply(gen, func(s *State) { s.IsLoading = true })

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		ae := autherr.As("login", err)
		m.apply(gen, func(s *State) {
			s.IsLoading = false
			s.Err = ae
		})
		return m.CurrentState(), ae
	}

	user := res.User
	if user == nil {
		if user, err = m.api.Verify(ctx, res.Tokens.AccessToken); err != nil {
			ae := autherr.As("verify", err)
			m.apply(gen, func(s *State) {
				s.IsLoading = false
				s.Err = ae
			})
			return m.CurrentState(), ae
		}
	}

	if serr := m.store.Set(ctx, res.Tokens); serr != nil {
		m.log.Warn(ctx, "token store write failed", "error", serr)
	}

	m.apply(gen, func(s *State) {
		s.IsInitialized = true
		s.IsLoading = false
		s.Mode = ModeAuthenticated
		s.IsAuthenticated = true
		s.User = user
		s.Err = nil
	})
	m.log.Info(ctx, "login succeeded", "user_id", user.ID, "tier", user.Tier)
	return m.CurrentState(), nil
}

// Logout invalidates the session: best-effort remote call, unconditional
// local clearing, terminal guest state. Idempotent; calling it while
// already logged out settles in the same state.
func (m *Manager) Logout(ctx context.Context) State {
	if pair, err := m.store.Get(ctx); err == nil && pair != nil && pair.AccessToken != "" {
		if lerr := m.api.Logout(ctx, pair.AccessToken); lerr != nil {
			// Best effort only; local state must never stay authenticated
			// because the server was unreachable.
			m.log.Warn(ctx, "remote logout failed", "error", lerr)
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn(ctx, "token store clear failed", "error", err)
	}

	m.invalidate()
	gen := m.generation()
	m.apply(gen, func(s *State) {
		s.Mode = ModeGuest
		s.IsAuthenticated = false
		s.IsInitialized = true
		s.IsLoading = false
		s.User = nil
		s.Err = nil
	})
	return m.CurrentState()
}

// RefreshOnDemand exchanges the stored refresh token for a fresh pair and
// returns the new access token. It is meant to be called by request-layer
// code after a mid-session 401. Concurrent calls coalesce into a single
// network call; every caller receives the same result.
//
// A rejected refresh token is terminal: the store is cleared and the state
// falls back to guest (or error). Transient failures preserve the stored
// pair and only record Err.
func (m *Manager) RefreshOnDemand(ctx context.Context) (string, error) {
	v, err, _ := m.flight.Do(opRefresh, func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	gen := m.generation()

	pair, err := m.store.Get(ctx)
	if err != nil {
		m.log.Warn(ctx, "token store read failed", "error", err)
		pair = nil
	}
	if pair == nil || pair.RefreshToken == "" {
		return "", autherr.New("refresh", autherr.KindUnauthorized, "no stored refresh token").Terminal()
	}

	newPair, rerr := m.api.Refresh(ctx, pair.RefreshToken)
	if rerr != nil {
		ae := autherr.As("refresh", rerr)
		if !ae.CredentialRejected() {
			m.apply(gen, func(s *State) { s.Err = ae })
			return "", ae
		}

		ae = ae.Terminal()
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.log.Warn(ctx, "token store clear failed", "error", cerr)
		}
		m.apply(gen, func(s *State) {
			s.IsAuthenticated = false
			s.User = nil
			if m.allowGuest {
				s.Mode = ModeGuest
				s.Err = nil
			} else {
				s.Mode = ModeError
				s.Err = ae
			}
		})
		return "", ae
	}

	// A logout that happened while the refresh was in flight already
	// cleared the store; the fresh pair must not resurrect the session.
	if gen != m.generation() {
		return "", ErrSuperseded
	}
	if serr := m.store.Set(ctx, *newPair); serr != nil {
		m.log.Warn(ctx, "token store write failed", "error", serr)
	}
	if !m.apply(gen, func(s *State) { s.Err = nil }) {
		return "", ErrSuperseded
	}
	return newPair.AccessToken, nil
}

// ClearError drops the recorded error without touching anything else.
func (m *Manager) ClearError() State {
	gen := m.generation()
	m.apply(gen, func(s *State) { s.Err = nil })
	return m.CurrentState()
}

// Close invalidates the session generation so that any still-pending async
// result is discarded. It does not touch the store.
func (m *Manager) Close() {
	m.invalidate()
}
