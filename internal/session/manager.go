// Package session derives the authentication state from the credential store and
// drives the login and logout flows.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/scribe/internal/credentials"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*services.LoginResponse, error)
}

// CredentialStore is the part of [credentials.Store] the manager uses.
type CredentialStore interface {
	Read() (string, error)
	Save(token string) error
	Clear() error
	Validate(token string) (*credentials.Claims, error)
}

// Manager owns the [models.Session].
type Manager struct {
	mu     sync.Mutex
	store  CredentialStore
	auth   Authenticator
	logger *log.Logger
	state  models.Session
}

// New creates a manager in the uninitialized phase.
func New(store CredentialStore, auth Authenticator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store:  store,
		auth:   auth,
		logger: logger,
		state:  models.Session{Phase: models.PhaseUninitialized},
	}
}

// State returns a copy of the current session.
func (m *Manager) State() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Init restores the session from a stored credential.
//
// A valid token is saved again so the ambient cookie exists in this process's jar.
// An invalid one is cleared.
func (m *Manager) Init(ctx context.Context) error {
	m.begin()
	defer m.finish()

	if err := ctx.Err(); err != nil {
		m.setIdentity(nil, "")
		return err
	}

	token, err := m.store.Read()
	if err != nil {
		m.logger.Error("failed to read stored credential", "error", err)
		m.setIdentity(nil, "")
		return err
	}
	if token == "" {
		m.setIdentity(nil, "")
		return nil
	}

	claims, err := m.store.Validate(token)
	if err != nil {
		m.logger.Info("stored credential is no longer valid", "error", err)
		if cerr := m.store.Clear(); cerr != nil {
			m.logger.Error("failed to clear invalid credential", "error", cerr)
		}
		m.setIdentity(nil, "")
		return nil
	}

	if err := m.store.Save(token); err != nil {
		m.logger.Error("failed to restore ambient credential", "error", err)
		m.setIdentity(nil, "")
		return err
	}

	m.setIdentity(&models.Identity{Username: claims.Subject}, "")
	m.logger.Debug("session restored", "user", claims.Subject)
	return nil
}

// Login authenticates and persists the issued token.
//
// Errors are [*shared.DisplayError] values of kind [shared.ErrLoginRejected] or
// [shared.ErrLoginFailed]; the same message is kept in the session.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.begin()
	defer m.finish()

	if strings.TrimSpace(username) == "" || password == "" {
		return m.fail(shared.NewDisplayError(shared.ErrLoginRejected, shared.MsgBadCredentials))
	}

	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.logger.Warn("login failed", "user", username, "error", err)
		return m.fail(classify(err))
	}

	claims, err := m.store.Validate(resp.Token)
	if err != nil {
		m.logger.Error("login returned an unusable token", "error", err)
		return m.fail(shared.NewDisplayError(shared.ErrLoginFailed, shared.MsgLoginError))
	}

	if err := m.store.Save(resp.Token); err != nil {
		m.logger.Error("failed to persist credential", "error", err)
		return m.fail(shared.NewDisplayError(shared.ErrLoginFailed, shared.MsgLoginError))
	}

	m.setIdentity(&models.Identity{Username: claims.Subject}, "")
	m.logger.Info("logged in", "user", claims.Subject)
	return nil
}

// Logout clears the credential. It makes no network call.
func (m *Manager) Logout() error {
	err := m.store.Clear()
	if err != nil {
		m.logger.Error("failed to clear credential", "error", err)
	}
	m.setIdentity(nil, "")
	return err
}

// classify maps an authenticator error to the message shown to the user.
func classify(err error) *shared.DisplayError {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && apiErr.ClientError() {
		return shared.NewDisplayError(shared.ErrLoginRejected, fallback(apiErr.Message, shared.MsgBadCredentials))
	}
	return shared.NewDisplayError(shared.ErrLoginFailed, shared.MsgLoginError)
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (m *Manager) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Phase = models.PhaseLoading
	m.state.Loading = true
	m.state.Error = ""
}

// finish always leaves loading, whatever path the operation took.
func (m *Manager) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Loading = false
	if m.state.Identity != nil {
		m.state.Phase = models.PhaseAuthenticated
	} else {
		m.state.Phase = models.PhaseAnonymous
	}
}

func (m *Manager) setIdentity(id *models.Identity, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Identity = id
	m.state.Authenticated = id != nil
	m.state.Error = msg
	if !m.state.Loading {
		if id != nil {
			m.state.Phase = models.PhaseAuthenticated
		} else {
			m.state.Phase = models.PhaseAnonymous
		}
	}
}

func (m *Manager) fail(err *shared.DisplayError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Error = err.Message
	return err
}
