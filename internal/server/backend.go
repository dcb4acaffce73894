package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

const (
	LoginPath     = "/api/auth/login"
	HealthPath    = "/health"
	OperationPath = "/api/text/"
	CookieName    = "auth_token"
	EventDone     = "done"
)

// Options configures a [Backend].
//
// FailAfter, when set, ends every stream with an error fragment after that many fragments.
type Options struct {
	Username     string
	Password     string
	Secret       string
	TokenTTL     time.Duration
	Delay        time.Duration
	Framed       bool
	CookieSecure bool
	CookieDomain string
	SameSite     http.SameSite
	FailAfter    int
	FailWith     string
	Now          func() time.Time
}

// OptionsFromConfig maps the [mock] config section onto [Options].
func OptionsFromConfig(cfg shared.MockConfig) Options {
	return Options{
		Username: cfg.Username,
		Password: cfg.Password,
		Secret:   cfg.Secret,
		TokenTTL: cfg.TokenTTL.Duration,
		Delay:    cfg.Delay.Duration,
		Framed:   cfg.Framed,
	}
}

// Backend is an in-process stand-in for the text transformation service.
type Backend struct {
	opts   Options
	logger *log.Logger
	router *BasicRouter
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type operationRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// NewBackend builds the routes for a mock backend.
func NewBackend(opts Options, logger *log.Logger) *Backend {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteNoneMode
	}
	if logger == nil {
		logger = log.Default()
	}

	b := &Backend{opts: opts, logger: logger, router: NewBasicRouter()}
	b.router.Use(Recover(logger), Logging(logger))
	b.router.Handle(HealthPath, http.HandlerFunc(b.health), http.MethodGet)
	b.router.Handle(LoginPath, http.HandlerFunc(b.login), http.MethodPost)
	for _, kind := range models.Kinds {
		b.router.Handle(OperationPath+kind.String(), b.Authenticate(b.operation(kind)), http.MethodGet, http.MethodPost)
	}
	return b
}

// ServeHTTP implements [http.Handler].
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// IssueToken signs an HS256 token for subject.
func (b *Backend) IssueToken(subject string) (string, time.Time, error) {
	now := b.opts.Now()
	expires := now.Add(b.opts.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.opts.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

// Verify checks the signature and expiry of token and returns its subject.
func (b *Backend) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(b.opts.Secret), nil
	}, jwt.WithTimeFunc(b.opts.Now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Authenticate rejects requests without a valid Bearer header or auth cookie.
func (b *Backend) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			if c, err := r.Cookie(CookieName); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeAuthError(w, "Authentication required")
			return
		}

		if _, err := b.Verify(token); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeAuthError(w, "Token expired")
				return
			}
			writeAuthError(w, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: malformed JSON body")
		return
	}
	if req.Username != b.opts.Username || req.Password != b.opts.Password {
		b.logger.Warn("rejected login", "username", req.Username)
		writeAuthError(w, shared.MsgBadCredentials)
		return
	}

	token, expires, err := b.IssueToken(req.Username)
	if err != nil {
		b.logger.Error("token signing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   b.opts.CookieDomain,
		Secure:   b.opts.CookieSecure,
		SameSite: b.opts.SameSite,
		Expires:  expires,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires.UTC()})
}

func (b *Backend) operation(kind models.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeOperation(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		req := models.Request{Kind: kind, Text: body.Text}
		if kind == models.Translate {
			lang, err := models.ParseLanguage(body.TargetLanguage)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request: unsupported target language")
				return
			}
			req.TargetLanguage = lang
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request: text is required")
			return
		}

		b.stream(r.Context(), w, Fragments(Transform(req)))
	})
}

// stream writes fragments as SSE messages followed by the done event.
func (b *Backend) stream(ctx context.Context, w http.ResponseWriter, fragments []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for i, fragment := range fragments {
		if b.opts.FailWith != "" && i == b.opts.FailAfter {
			payload, _ := json.Marshal(map[string]string{"error": b.opts.FailWith})
			writeEvent(w, "", string(payload))
			flusher.Flush()
			return
		}

		data := fragment
		if b.opts.Framed {
			payload, _ := json.Marshal(map[string]string{"data": fragment})
			data = string(payload)
		}
		writeEvent(w, "", data)
		flusher.Flush()

		if b.opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.opts.Delay):
			}
		}
	}

	if b.opts.FailWith != "" && b.opts.FailAfter >= len(fragments) {
		payload, _ := json.Marshal(map[string]string{"error": b.opts.FailWith})
		writeEvent(w, "", string(payload))
		flusher.Flush()
		return
	}

	writeEvent(w, EventDone, "")
	flusher.Flush()
}

func decodeOperation(r *http.Request) (operationRequest, error) {
	var body operationRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return body, errors.New("malformed JSON body")
		}
		return body, nil
	}
	q := r.URL.Query()
	body.Text = q.Get("text")
	body.TargetLanguage = q.Get("target_language")
	return body, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// writeEvent frames data as one SSE event, one data line per input line.
func writeEvent(w http.ResponseWriter, event, data string) {
	var sb strings.Builder
	if event != "" {
		sb.WriteString("event: " + event + "\n")
	}
	for line := range strings.SplitSeq(data, "\n") {
		sb.WriteString("data: " + line + "\n")
	}
	sb.WriteString("\n")
	_, _ = w.Write([]byte(sb.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Message: message, Code: status}})
}

func writeAuthError(w http.ResponseWriter, reason string) {
	writeError(w, http.StatusUnauthorized, "Authentication error: "+reason)
}
