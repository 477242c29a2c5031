package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	seatlock "github.com/preplabs/seatlock"
)

// defaultRefreshFraction places the proactive refresh at 87.5% of the
// token's lifetime: late enough not to waste provider calls, early enough
// to leave slack for clock skew and network latency.
const defaultRefreshFraction = 0.875

// minRearmDelay floors timer re-arms so a short-lived or unparseable
// token can never produce a hot refresh loop.
const minRearmDelay = 30 * time.Second

// ManagerConfig configures a [Manager]. Provider and Store are required.
type ManagerConfig struct {
	Provider seatlock.AuthProvider
	Store    CredentialStore

	// RefreshFraction of the token lifetime at which the proactive timer
	// fires. Defaults to 0.875. Must be in (0, 1).
	RefreshFraction float64

	// Wake delivers visibility/focus-style notifications. Optional.
	Wake WakeSignal

	// Invalidation delivers cross-context logout notifications. Optional.
	Invalidation InvalidationSignal

	// Logger receives transport-failure warnings. Defaults to slog.Default().
	Logger *slog.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Manager is the client-side session scheduler. It owns the proactive
// refresh timer, collapses concurrent refresh triggers into one provider
// call, reacts to wake and invalidation signals, and broadcasts every
// state transition on its event bus.
//
// All methods are safe for concurrent use.
type Manager struct {
	provider seatlock.AuthProvider
	store    CredentialStore
	fraction float64
	wake     WakeSignal
	invalid  InvalidationSignal
	log      *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       State
	profile     *seatlock.UserProfile
	accessToken string
	refreshing  bool
	timer       *time.Timer
	closed      bool

	bus       *bus
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager builds a Manager. No timers run and no I/O happens until
// Start.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, errors.New("lifecycle: auth provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("lifecycle: credential store is required")
	}
	if cfg.RefreshFraction == 0 {
		cfg.RefreshFraction = defaultRefreshFraction
	}
	if cfg.RefreshFraction <= 0 || cfg.RefreshFraction >= 1 {
		return nil, errors.New("lifecycle: refresh fraction must be in (0, 1)")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		provider: cfg.Provider,
		store:    cfg.Store,
		fraction: cfg.RefreshFraction,
		wake:     cfg.Wake,
		invalid:  cfg.Invalidation,
		log:      cfg.Logger,
		now:      cfg.Now,
		bus:      newBus(),
		done:     make(chan struct{}),
	}, nil
}

// Subscribe registers a lifecycle event listener. The returned cancel
// function deregisters it. A slow listener loses events; it never stalls
// the scheduler.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.bus.subscribe()
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns a copy of the cached user profile, or nil when none is
// held.
func (m *Manager) Profile() *seatlock.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	copy := *m.profile
	return &copy
}

// AccessToken returns the current access token, empty when
// unauthenticated.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Start restores persisted credentials and enters the timer-driven steady
// state. When a stored refresh token exists, exactly one refresh runs
// before Start returns — stale cached tokens are never trusted as-is. A
// transport failure during that refresh keeps the stored credentials and
// arms the timer anyway; a rejection clears them.
func (m *Manager) Start(ctx context.Context) error {
	creds, err := loadCredentials(m.store)
	if err != nil {
		return fmt.Errorf("lifecycle: restore credentials: %w", err)
	}

	if creds.RefreshToken != "" {
		m.mu.Lock()
		m.state = StateFresh
		m.profile = creds.Profile
		m.accessToken = creds.AccessToken
		m.mu.Unlock()

		switch outcome, err := m.refresh(ctx); outcome {
		case refreshDone:
			m.bus.publish(Event{Type: EventSessionEstablished, User: m.Profile()})
		case refreshTransient:
			m.log.Warn("session restore refresh failed, keeping cached credentials", "error", err)
			m.mu.Lock()
			m.armTimerLocked(tokenLifetime(seatlock.TokenPair{AccessToken: creds.AccessToken}, m.now()))
			m.mu.Unlock()
			m.bus.publish(Event{Type: EventSessionEstablished, User: m.Profile()})
		case refreshRejected:
			// refresh already cleared state and emitted SessionExpired.
		}
	}

	m.wg.Add(1)
	go m.run()

	return nil
}

// Establish installs a freshly-issued session, typically right after a
// successful login. Persists the pair and profile, arms the proactive
// timer, and emits SessionEstablished.
func (m *Manager) Establish(profile seatlock.UserProfile, pair seatlock.TokenPair) error {
	if err := saveSession(m.store, pair, &profile); err != nil {
		return fmt.Errorf("lifecycle: persist session: %w", err)
	}

	m.mu.Lock()
	m.state = StateFresh
	m.profile = &profile
	m.accessToken = pair.AccessToken
	m.armTimerLocked(tokenLifetime(pair, m.now()))
	m.mu.Unlock()

	m.bus.publish(Event{Type: EventSessionEstablished, User: &profile})
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. Takes no
// token argument — the store is the source of truth.
//
// Concurrent calls collapse: while one refresh is in flight, others
// return nil immediately without a second provider call. No stored token
// is a silent no-op. A rejected token clears all session state, emits
// SessionExpired, and stops the timer; that error is terminal. A
// transport failure is returned but changes nothing, and no automatic
// retry is scheduled beyond the normal timer cadence.
func (m *Manager) Refresh(ctx context.Context) error {
	outcome, err := m.refresh(ctx)
	if outcome == refreshDone {
		m.bus.publish(Event{Type: EventSessionRefreshed, User: m.Profile()})
	}
	return err
}

type refreshOutcome int

const (
	refreshDone refreshOutcome = iota
	refreshSkipped
	refreshRejected
	refreshTransient
)

func (m *Manager) refresh(ctx context.Context) (refreshOutcome, error) {
	m.mu.Lock()
	if m.closed || m.refreshing {
		m.mu.Unlock()
		return refreshSkipped, nil
	}
	m.refreshing = true
	prev := m.state
	m.mu.Unlock()

	finish := func(state State) {
		m.mu.Lock()
		m.refreshing = false
		m.state = state
		m.mu.Unlock()
	}

	token, ok, err := m.store.Get(KeyRefreshToken)
	if err != nil {
		finish(prev)
		return refreshTransient, fmt.Errorf("lifecycle: read refresh token: %w", err)
	}
	if !ok || token == "" {
		finish(prev)
		return refreshSkipped, nil
	}

	m.mu.Lock()
	if m.state == StateFresh {
		m.state = StateRefreshing
	}
	m.mu.Unlock()

	session, err := m.provider.Refresh(ctx, token)
	if err != nil {
		if seatlock.IsTransportFailure(err) {
			m.log.Warn("token refresh unreachable, keeping session state", "error", err)
			m.mu.Lock()
			m.refreshing = false
			m.state = prev
			m.armTimerLocked(minRearmDelay * 2)
			m.mu.Unlock()
			return refreshTransient, fmt.Errorf("%w: %v", seatlock.ErrTransportFailure, err)
		}

		m.expire()
		return refreshRejected, fmt.Errorf("%w: %v", seatlock.ErrRefreshRejected, err)
	}
	if session.Tokens == nil {
		m.expire()
		return refreshRejected, fmt.Errorf("%w: provider returned no tokens", seatlock.ErrRefreshRejected)
	}

	profile := session.User
	if err := saveSession(m.store, *session.Tokens, &profile); err != nil {
		// Tokens were rotated but could not be persisted. Keep them in
		// memory so this context stays alive; the next refresh rewrites
		// the store.
		m.log.Warn("refreshed session could not be persisted", "error", err)
	}

	m.mu.Lock()
	m.refreshing = false
	m.state = StateFresh
	m.profile = &profile
	m.accessToken = session.Tokens.AccessToken
	m.armTimerLocked(tokenLifetime(*session.Tokens, m.now()))
	m.mu.Unlock()

	return refreshDone, nil
}

// expire is the sole token-failure path out of a session: clear persisted
// state, stop the timer, emit SessionExpired. Safe to run when already
// unauthenticated.
func (m *Manager) expire() {
	if err := clearSession(m.store); err != nil {
		m.log.Warn("clearing expired session state failed", "error", err)
	}

	m.mu.Lock()
	m.refreshing = false
	m.state = StateExpired
	m.profile = nil
	m.accessToken = ""
	m.stopTimerLocked()
	m.state = StateUnauthenticated
	m.mu.Unlock()

	m.bus.publish(Event{Type: EventSessionExpired})
}

// Logout ends the session from this context: best-effort refresh-token
// revocation at the provider, then the storage clear that doubles as the
// logout signal for sibling contexts.
func (m *Manager) Logout(ctx context.Context) error {
	token, ok, err := m.store.Get(KeyRefreshToken)
	if err == nil && ok && token != "" {
		if err := m.provider.RevokeRefresh(ctx, token); err != nil {
			m.log.Warn("refresh token revocation failed", "error", err)
		}
	}

	if err := clearSession(m.store); err != nil {
		return fmt.Errorf("lifecycle: clear session: %w", err)
	}

	m.mu.Lock()
	m.state = StateUnauthenticated
	m.profile = nil
	m.accessToken = ""
	m.stopTimerLocked()
	m.mu.Unlock()

	m.bus.publish(Event{Type: EventLoggedOut})
	return nil
}

// Close is the teardown contract: cancels the timer, stops the signal
// loop, and closes every subscriber channel. Idempotent. A refresh
// already in flight is allowed to complete; its events go nowhere.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.stopTimerLocked()
		m.mu.Unlock()

		close(m.done)
		m.wg.Wait()
		m.bus.close()
	})
}

func (m *Manager) run() {
	defer m.wg.Done()

	var wakes <-chan struct{}
	if m.wake != nil {
		wakes = m.wake.Wakes()
	}
	var invalidations <-chan struct{}
	if m.invalid != nil {
		invalidations = m.invalid.Invalidations()
	}

	for {
		select {
		case <-wakes:
			if err := m.Refresh(context.Background()); err != nil {
				m.log.Warn("wake-triggered refresh failed", "error", err)
			}
		case <-invalidations:
			m.handleInvalidation()
		case <-m.done:
			return
		}
	}
}

// handleInvalidation tears down local state after another context ended
// the session. No network call and no storage write: the other context
// already cleared the store.
func (m *Manager) handleInvalidation() {
	m.mu.Lock()
	wasAuthenticated := m.state != StateUnauthenticated
	m.state = StateUnauthenticated
	m.profile = nil
	m.accessToken = ""
	m.stopTimerLocked()
	m.mu.Unlock()

	if wasAuthenticated {
		m.bus.publish(Event{Type: EventLoggedOut})
	}
}

func (m *Manager) armTimerLocked(lifetime time.Duration) {
	if m.closed {
		return
	}

	delay := time.Duration(float64(lifetime) * m.fraction)
	if delay < minRearmDelay {
		delay = minRearmDelay
	}

	m.stopTimerLocked()
	m.timer = time.AfterFunc(delay, func() {
		if err := m.Refresh(context.Background()); err != nil {
			m.log.Warn("scheduled refresh failed", "error", err)
		}
	})
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
