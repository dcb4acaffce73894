package credentials

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/desertthunder/scribe/internal/shared"
)

// CookieName is the ambient credential cookie the backend reads.
const CookieName = "auth_token"

// CookieScope fixes the attributes of the ambient credential cookie.
//
// Save and Clear must use the same scope or the jar keeps the old entry.
type CookieScope struct {
	URL      *url.URL
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// ScopeFor derives the cookie scope for baseURL, applying overrides from cfg.
//
// Secure follows the scheme unless cfg.Secure is "always" or "never". The domain is
// ".<registrable domain>" of the host, or host-only for loopback and IP hosts.
func ScopeFor(baseURL string, cfg shared.CookieConfig) (CookieScope, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return CookieScope{}, fmt.Errorf("%w: base url %q: %v", shared.ErrInvalidConfig, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return CookieScope{}, fmt.Errorf("%w: base url %q must be absolute http(s)", shared.ErrInvalidConfig, baseURL)
	}

	scope := CookieScope{
		URL:      &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		Name:     cfg.Name,
		Path:     "/",
		SameSite: http.SameSiteNoneMode,
	}
	if scope.Name == "" {
		scope.Name = CookieName
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Secure)) {
	case "", "auto":
		scope.Secure = u.Scheme == "https"
	case "always":
		scope.Secure = true
	case "never":
		scope.Secure = false
	default:
		return CookieScope{}, fmt.Errorf("%w: cookie secure must be auto, always or never, got %q", shared.ErrInvalidConfig, cfg.Secure)
	}

	if cfg.Domain != "" {
		scope.Domain = cfg.Domain
	} else {
		scope.Domain = baseDomain(u.Hostname())
	}

	return scope, nil
}

// baseDomain returns ".<eTLD+1>" for host, or "" when the cookie should be host-only.
func baseDomain(host string) string {
	host = strings.ToLower(host)
	if isLoopback(host) || net.ParseIP(host) != nil {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return "." + etld1
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Cookie builds the credential cookie for value. A negative maxAge expires it.
func (s CookieScope) Cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     s.Path,
		Domain:   s.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}

// NewJar creates a cookie jar backed by the public suffix list.
func NewJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}
