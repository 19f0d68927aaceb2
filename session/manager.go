package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dash-session/credentials"
	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TransitionHook is called after every state change, outside the manager's lock.
type TransitionHook func(from, to Status)

type transition struct {
	from, to Status
}

// refreshCall lets concurrent Renew callers share one refresh round trip.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Manager owns the Session and mediates every change to it.
//
// The mutex is held across credential store I/O so store contents always
// match the state, but never across calls to the Authenticator.
type Manager struct {
	mu         sync.RWMutex
	state      Session
	busy       bool // login or logout in flight
	refreshing *refreshCall

	store   credentials.Store
	auth    Authenticator
	hooks   []TransitionHook
	logger  zerolog.Logger
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithTransitionHook registers fn to observe state changes.
func WithTransitionHook(fn TransitionHook) ManagerOption {
	return func(m *Manager) {
		m.hooks = append(m.hooks, fn)
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a Manager in the Anonymous state. Call Restore to pick
// up a credential persisted by a previous run.
func NewManager(store credentials.Store, auth Authenticator, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}

	m := &Manager{
		state:   Session{Status: Anonymous},
		store:   store,
		auth:    auth,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m, nil
}

// Status is a synchronous read of the current state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Status
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// AccessToken returns the current token, if the session is authenticated.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Status != Authenticated {
		return "", false
	}
	return m.state.AccessToken, true
}

// Identity returns the signed in user, if any.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Identity == nil {
		return Identity{}, false
	}
	return *m.state.Identity, true
}

// Restore moves Anonymous to Authenticated when the store holds a credential
// that is not known to be expired. No network call is made; the first
// rejected API call expires the session if the server disagrees. A corrupt or
// expired credential is cleared and the session stays Anonymous. A credential
// that carries no identity is left in place and the session stays Anonymous.
// Restore never fails: an unreadable store counts as empty.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.busy || m.state.Status != Anonymous {
		m.mu.Unlock()
		return nil
	}

	cred, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		m.mu.Unlock()
		return nil
	case errors.Is(err, credentials.ErrStorageCorrupt):
		m.logger.Warn().Err(err).Msg("discarding unreadable credential")
		m.clearStoreLocked(ctx)
		m.mu.Unlock()
		return nil
	case err != nil:
		m.logger.Warn().Err(err).Msg("credential store unreadable, staying anonymous")
		m.mu.Unlock()
		return nil
	}

	if cred.ExpiredAt(m.nowTime()) {
		m.logger.Info().Msg("stored credential expired, staying anonymous")
		m.clearStoreLocked(ctx)
		m.mu.Unlock()
		return nil
	}

	identity := cred.Identity
	if identity == nil {
		identity = identityFromToken(cred.AccessToken)
	}
	if identity == nil {
		m.logger.Warn().Msg("stored credential has no identity, staying anonymous")
		m.mu.Unlock()
		return nil
	}

	expiresAt := cred.ExpiresAtHint
	if expiresAt == nil {
		if exp, ok := cred.ExpiresAt(); ok {
			expiresAt = &exp
		}
	}

	t := m.setLocked(Session{
		Status:       Authenticated,
		Identity:     identity,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    expiresAt,
	})
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// Login authenticates with email and password. It fails with ErrSessionBusy
// while another login, a logout or a refresh is in flight, and leaves the
// in-flight one untouched. Failures move the session to Error and are
// returned as *failure.Error.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	if m.busy || m.refreshing != nil {
		m.mu.Unlock()
		return ErrSessionBusy
	}
	m.busy = true
	t := m.setLocked(Session{Status: Authenticating})
	m.mu.Unlock()
	m.notify(t)

	grant, err := m.auth.Login(ctx, email, password)
	if err == nil {
		err = validateGrant(grant)
	}

	m.mu.Lock()
	if err != nil {
		kind := failure.KindOf(err)
		t := m.setLocked(Session{Status: Error, LastError: &kind})
		m.busy = false
		m.mu.Unlock()
		m.logger.Info().Str("kind", kind.String()).Msg("login failed")
		m.notify(t)
		return failure.Wrap(err)
	}

	next := Session{
		Status:       Authenticated,
		Identity:     utils.Ptr(grant.Identity),
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    utils.TimePtr(grant.ExpiresAt),
	}
	if err := m.store.Save(ctx, next.credential()); err != nil {
		// The session is usable; it just won't survive a restart.
		m.logger.Error().Err(err).Msg("failed to persist credential")
	}
	t = m.setLocked(next)
	m.busy = false
	m.mu.Unlock()
	m.logger.Info().Str("user_id", grant.Identity.ID).Msg("logged in")
	m.notify(t)
	return nil
}

// Logout returns to Anonymous from any state and clears the store. Tokens are
// revoked server side on a best effort basis. It only fails with
// ErrSessionBusy, while a login or another logout is in flight. A refresh in
// flight does not block it: the refresh is discarded when it lands.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrSessionBusy
	}
	m.busy = true
	prev := m.state.clone()
	m.mu.Unlock()

	if prev.Status == Authenticated {
		if err := m.auth.Revoke(ctx, prev.AccessToken, prev.RefreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("token revocation failed")
		}
	}

	m.mu.Lock()
	landed := m.state.clone()
	m.clearStoreLocked(ctx)
	t := m.setLocked(Session{Status: Anonymous})
	m.busy = false
	m.mu.Unlock()

	// A refresh that completed during revocation minted tokens nobody revoked.
	if landed.Status == Authenticated && landed.AccessToken != prev.AccessToken {
		if err := m.auth.Revoke(ctx, landed.AccessToken, landed.RefreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("token revocation failed")
		}
	}
	m.notify(t)
	return nil
}

// Refresh mints a new access token from the refresh token. The session stays
// Authenticated on success. A refresh rejected as Unauthorized expires the
// session; other failures leave it as it was.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	token := m.state.AccessToken
	m.mu.RUnlock()
	_, err := m.Renew(ctx, token)
	return err
}

// Renew returns a fresh access token to replace stale. If the session already
// moved past stale, the current token is returned without a round trip.
// Concurrent callers share a single refresh.
func (m *Manager) Renew(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	if call := m.refreshing; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.state.Status != Authenticated {
		m.mu.Unlock()
		return "", failure.New(failure.Unauthorized, ErrNotAuthenticated)
	}
	if m.state.AccessToken != stale {
		token := m.state.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	if m.busy {
		m.mu.Unlock()
		return "", ErrSessionBusy
	}
	if m.state.RefreshToken == "" {
		m.mu.Unlock()
		return "", ErrNoRefreshToken
	}

	call := &refreshCall{done: make(chan struct{})}
	m.refreshing = call
	refreshToken := m.state.RefreshToken
	m.mu.Unlock()

	call.token, call.err = m.refresh(ctx, stale, refreshToken)

	m.mu.Lock()
	m.refreshing = nil
	m.mu.Unlock()
	close(call.done)
	return call.token, call.err
}

func (m *Manager) refresh(ctx context.Context, stale, refreshToken string) (string, error) {
	grant, err := m.auth.Refresh(ctx, refreshToken)
	if err == nil && grant.AccessToken == "" {
		err = failure.New(failure.InvalidResponse, ErrInvalidGrant)
	}

	m.mu.Lock()
	if err != nil {
		if failure.KindOf(err) == failure.Unauthorized && ctx.Err() == nil {
			t, ok := m.expireLocked(ctx, stale)
			m.mu.Unlock()
			if ok {
				m.notify(t)
			}
			return "", failure.Wrap(err)
		}
		m.mu.Unlock()
		m.logger.Warn().Err(err).Msg("refresh failed")
		return "", failure.Wrap(err)
	}

	if m.state.Status != Authenticated || m.state.AccessToken != stale {
		// Logged out or expired while the refresh was in flight.
		m.mu.Unlock()
		return "", failure.New(failure.Unauthorized, ErrNotAuthenticated)
	}

	next := m.state.clone()
	next.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}
	next.ExpiresAt = utils.TimePtr(grant.ExpiresAt)
	if grant.Identity.ID != "" {
		next.Identity = utils.Ptr(grant.Identity)
	}
	if err := m.store.Save(ctx, next.credential()); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist refreshed credential")
	}
	m.state = next
	m.mu.Unlock()

	m.logger.Debug().Msg("access token refreshed")
	return next.AccessToken, nil
}

// Invalidate is the unauthorized signal: the server rejected token. If token
// is still the session's access token the session moves to Expired and the
// store is cleared. It reports whether that transition happened, so a burst
// of rejections for the same token expires the session once.
func (m *Manager) Invalidate(token string) bool {
	m.mu.Lock()
	t, ok := m.expireLocked(context.Background(), token)
	m.mu.Unlock()
	if ok {
		m.notify(t)
	}
	return ok
}

func (m *Manager) expireLocked(ctx context.Context, token string) (transition, bool) {
	if m.state.Status != Authenticated || m.state.AccessToken != token {
		return transition{}, false
	}
	kind := failure.Unauthorized
	m.clearStoreLocked(ctx)
	m.logger.Info().Msg("session expired")
	return m.setLocked(Session{Status: Expired, LastError: &kind}), true
}

func (m *Manager) clearStoreLocked(ctx context.Context) {
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear credential")
	}
}

func (m *Manager) setLocked(next Session) transition {
	t := transition{from: m.state.Status, to: next.Status}
	m.state = next
	return t
}

func (m *Manager) notify(t transition) {
	m.logger.Debug().Stringer("from", t.from).Stringer("to", t.to).Msg("transition")
	for _, hook := range m.hooks {
		hook(t.from, t.to)
	}
}

func validateGrant(g *Grant) error {
	if g == nil || g.AccessToken == "" || g.Identity.ID == "" {
		return failure.New(failure.InvalidResponse, ErrInvalidGrant)
	}
	return nil
}

// identityFromToken reads sub, email and name claims from an unverified JWT.
func identityFromToken(raw string) *Identity {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &Identity{ID: sub, Email: email, DisplayName: name}
}
