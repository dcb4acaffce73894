// package services contains the HTTP clients for the text-transformation backend
package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/scribe/internal/shared"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ErrorBody covers the error shapes the backend returns.
//
//	{"message": "..."}
//	{"error": {"message": "...", "code": "..."}}
//	{"error": "..."}
type ErrorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// ErrorMessage extracts the server's message from body, or "" when none is present.
func ErrorMessage(body []byte) string {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	if len(eb.Error) == 0 {
		return ""
	}

	var detail errorDetail
	if err := json.Unmarshal(eb.Error, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	var text string
	if err := json.Unmarshal(eb.Error, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return ""
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

// NewAPIError builds an [APIError] from a status and the raw response body.
func NewAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: ErrorMessage(body)}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", shared.ErrAPIRequest, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s", shared.ErrAPIRequest, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// ClientError reports a 4xx status.
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
