// Package credentials keeps the bearer credential in two places: a durable key/value
// store that survives restarts and an [http.CookieJar] entry that the streaming channel
// sends automatically. [Store] keeps the two in sync.
package credentials

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/scribe/internal/shared"
)

// TokenKey is the durable key holding the credential.
const TokenKey = "token"

// DefaultLifetime is how long the ambient cookie lives after a save.
const DefaultLifetime = 30 * 24 * time.Hour

// Durable is the persistent half of the store.
type Durable interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// CookieJar is the subset of [http.CookieJar] the store needs.
type CookieJar interface {
	SetCookies(u *url.URL, cookies []*http.Cookie)
	Cookies(u *url.URL) []*http.Cookie
}

var _ oauth2.TokenSource = (*Store)(nil)

// Store persists, reads and invalidates the credential.
type Store struct {
	mu       sync.Mutex
	durable  Durable
	jar      CookieJar
	scope    CookieScope
	lifetime time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithClock sets the clock used for cookie expiry and token validation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLifetime sets the ambient cookie lifetime.
func WithLifetime(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a [Store] over durable storage and a cookie jar scoped by scope.
func NewStore(durable Durable, jar CookieJar, scope CookieScope, opts ...Option) *Store {
	s := &Store{
		durable:  durable,
		jar:      jar,
		scope:    scope,
		lifetime: DefaultLifetime,
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scope returns the cookie scope the store writes with.
func (s *Store) Scope() CookieScope { return s.scope }

// Save writes token to durable storage, then to the cookie jar.
func (s *Store) Save(token string) error {
	if token == "" {
		return fmt.Errorf("%w: refusing to save an empty token", shared.ErrInvalidToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.durable.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	cookie := s.scope.Cookie(token, s.now().Add(s.lifetime), 0)
	s.jar.SetCookies(s.scope.URL, []*http.Cookie{cookie})
	s.logger.Debug("credential saved", "domain", s.scope.Domain, "secure", s.scope.Secure)
	return nil
}

// Clear removes the token from durable storage and expires the cookie.
//
// The cookie is expired even when the durable delete fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.durable.Delete(TokenKey)

	cookie := s.scope.Cookie("", time.Unix(0, 0), -1)
	s.jar.SetCookies(s.scope.URL, []*http.Cookie{cookie})
	s.logger.Debug("credential cleared")

	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Read returns the durable token, or "" when none is stored. It does not validate.
func (s *Store) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.durable.Get(TokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// Validate decodes token and checks its expiry against the store clock.
func (s *Store) Validate(token string) (*Claims, error) {
	return decode(token, s.now)
}

// Ambient returns the credential cookie value the jar would send to u.
func (s *Store) Ambient(u *url.URL) string {
	if u == nil {
		u = s.scope.URL
	}
	for _, c := range s.jar.Cookies(u) {
		if c.Name == s.scope.Name {
			return c.Value
		}
	}
	return ""
}

// Current returns a token that is present, unexpired and in sync with the cookie jar.
//
// Failures are [shared.DisplayError] values of kind [shared.ErrUnauthenticated] or
// [shared.ErrInvalidToken].
func (s *Store) Current() (string, *Claims, error) {
	token, err := s.Read()
	if err != nil {
		s.logger.Error("credential unavailable", "error", err)
		return "", nil, shared.NewDisplayError(shared.ErrUnauthenticated, shared.MsgAuthRequired)
	}
	if token == "" {
		return "", nil, shared.NewDisplayError(shared.ErrUnauthenticated, shared.MsgAuthRequired)
	}

	claims, err := s.Validate(token)
	if err != nil {
		s.logger.Debug("stored credential rejected", "error", err)
		return "", nil, shared.NewDisplayError(shared.ErrInvalidToken, shared.MsgSessionExpired)
	}

	if s.Ambient(s.scope.URL) != token {
		s.logger.Warn("ambient credential out of sync with durable store")
		return "", nil, shared.NewDisplayError(shared.ErrUnauthenticated, shared.MsgAuthRequired)
	}

	return token, claims, nil
}

// Token implements [oauth2.TokenSource] for ordinary Bearer-authenticated requests.
func (s *Store) Token() (*oauth2.Token, error) {
	token, err := s.Read()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, shared.NewDisplayError(shared.ErrUnauthenticated, shared.MsgAuthRequired)
	}

	claims, err := s.Validate(token)
	if err != nil {
		s.logger.Debug("stored credential rejected", "error", err)
		return nil, shared.NewDisplayError(shared.ErrInvalidToken, shared.MsgSessionExpired)
	}

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: claims.ExpiresAt}, nil
}
