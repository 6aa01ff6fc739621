// Package services contains the application services of the dome client:
// the session state machine and workspace-level operations used by the CLI.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/common"
	"github.com/dmitrijs2005/dome/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

type State int

const (
	StateAnonymous State = iota
	StateResolving
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TokenStore persists the single session token across restarts.
type TokenStore interface {
	Load(ctx context.Context) (token, email string, err error)
	Save(ctx context.Context, token, email string) error
	Clear(ctx context.Context) error
}

// SessionManager owns the bearer token and the resolved user. It implements
// client.Auth, so the gateway reads the token from it at send time and
// reports authorization failures back to it.
//
// The mutex is never held while calling the gateway: a 401 seen by the
// gateway re-enters the manager through Unauthorized.
type SessionManager struct {
	api   client.Client
	store TokenStore
	log   logging.Logger
	now   func() time.Time

	mu        sync.RWMutex
	state     State
	token     string
	user      models.User
	epoch     uint64
	observers []func(State)
}

func NewSessionManager(api client.Client, store TokenStore, log logging.Logger) *SessionManager {
	return &SessionManager{
		api:   api,
		store: store,
		log:   logging.OrNop(log),
		now:   time.Now,
	}
}

func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the current bearer token, or "" when anonymous.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns the resolved user. ok is false unless authenticated.
func (m *SessionManager) User() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.state == StateAuthenticated
}

// OnChange registers fn to be called after every state transition.
func (m *SessionManager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Restore reloads a persisted token and resolves its user. A token whose
// exp claim is already past is discarded without contacting the server.
func (m *SessionManager) Restore(ctx context.Context) error {
	token, _, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return nil
	}
	if m.expired(token) {
		m.log.Info(ctx, "stored session expired")
		m.reset(ctx, m.currentEpoch())
		return client.ErrUnauthorized
	}

	epoch := m.begin(token)
	_, err = m.resolve(ctx, epoch)
	return err
}

// Login exchanges credentials for a token and resolves the user.
func (m *SessionManager) Login(ctx context.Context, username, password string) (models.User, error) {
	if common.IsBlank(username) || password == "" {
		return models.User{}, fmt.Errorf("username and password are required: %w", client.ErrValidation)
	}

	tok, err := m.api.Login(ctx, username, password)
	if err != nil {
		return models.User{}, err
	}

	epoch := m.begin(tok.AccessToken)
	if err := m.store.Save(ctx, tok.AccessToken, username); err != nil {
		m.log.Warn(ctx, "failed to persist session", "error", err)
	}
	return m.resolve(ctx, epoch)
}

// Register creates the account and then logs in with the same credentials.
func (m *SessionManager) Register(ctx context.Context, r models.Registration) (models.User, error) {
	if common.IsBlank(r.Username) || common.IsBlank(r.Email) || r.Password == "" {
		return models.User{}, fmt.Errorf("username, email and password are required: %w", client.ErrValidation)
	}
	if err := m.api.Register(ctx, r); err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	return m.Login(ctx, r.Username, r.Password)
}

// Logout drops the session. It always succeeds and may be called repeatedly.
func (m *SessionManager) Logout(ctx context.Context) {
	m.reset(ctx, m.currentEpoch())
}

// Unauthorized is called by the gateway when the server rejects token.
// A rejection of a token other than the current one is ignored, so a late
// reply to an earlier session cannot end a newer one.
func (m *SessionManager) Unauthorized(ctx context.Context, token string) {
	m.mu.RLock()
	current, epoch := m.token, m.epoch
	m.mu.RUnlock()
	if token != current {
		m.log.Debug(ctx, "authorization failure for a replaced token ignored")
		return
	}
	m.log.Warn(ctx, "authorization failure, logging out")
	m.reset(ctx, epoch)
}

func (m *SessionManager) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// not a JWT; let the server judge it
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(m.now())
}

func (m *SessionManager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// begin installs token and enters the resolving state.
func (m *SessionManager) begin(token string) uint64 {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.token = token
	m.user = models.User{}
	m.state = StateResolving
	observers := m.observers
	m.mu.Unlock()

	notify(observers, StateResolving)
	return epoch
}

func (m *SessionManager) resolve(ctx context.Context, epoch uint64) (models.User, error) {
	user, err := m.api.Me(ctx)
	if err != nil {
		m.reset(ctx, epoch)
		return models.User{}, fmt.Errorf("resolve user: %w", err)
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return models.User{}, fmt.Errorf("session changed while resolving user: %w", client.ErrUnauthorized)
	}
	m.user = user
	m.state = StateAuthenticated
	token := m.token
	observers := m.observers
	m.mu.Unlock()

	if err := m.store.Save(ctx, token, user.Email); err != nil {
		m.log.Warn(ctx, "failed to persist session", "error", err)
	}
	m.log.Info(ctx, "session authenticated", "user", user.Username)
	notify(observers, StateAuthenticated)
	return user, nil
}

// reset returns to anonymous and clears storage, unless another session was
// started after epoch.
func (m *SessionManager) reset(ctx context.Context, epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.epoch++
	changed := m.state != StateAnonymous
	m.state = StateAnonymous
	m.token = ""
	m.user = models.User{}
	observers := m.observers
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn(ctx, "failed to clear stored session", "error", err)
	}
	if changed {
		notify(observers, StateAnonymous)
	}
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}
