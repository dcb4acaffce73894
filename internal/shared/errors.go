package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrUnauthenticated = fmt.Errorf("not authenticated")
	ErrInvalidToken    = fmt.Errorf("invalid token")
	ErrLoginRejected   = fmt.Errorf("login rejected")
	ErrLoginFailed     = fmt.Errorf("login failed")

	// Streaming errors
	ErrChannelSetupFailed = fmt.Errorf("channel setup failed")
	ErrStreamFailed       = fmt.Errorf("stream failed")
	ErrInvalidRequest     = fmt.Errorf("invalid operation request")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRunNotFound        = fmt.Errorf("run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// User-facing messages attached to [DisplayError] values.
const (
	MsgAuthRequired    = "Authentication required"
	MsgSessionExpired  = "Your session has expired, please log in again"
	MsgBadCredentials  = "Invalid username or password"
	MsgLoginError      = "An error occurred during login"
	MsgProcessingError = "An error occurred while processing your request"
	MsgStalledStream   = "The server stopped responding"
	MsgCanceled        = "The operation was canceled"
	MsgRequestError    = "An error occurred"
	MsgUnexpected      = "An unexpected error occurred"
)

// DisplayError pairs a sentinel Kind with the message shown to the user.
//
// [errors.Is] matches against Kind, so callers branch on the sentinel and render Message.
type DisplayError struct {
	Kind    error
	Message string
}

// NewDisplayError creates a [DisplayError]. An empty message falls back to the kind's text.
func NewDisplayError(kind error, message string) *DisplayError {
	if message == "" && kind != nil {
		message = kind.Error()
	}
	return &DisplayError{Kind: kind, Message: message}
}

func (e *DisplayError) Error() string { return e.Message }
func (e *DisplayError) Unwrap() error { return e.Kind }

// IsAuthError reports whether err stems from a missing or locally rejected credential.
//
// These failures never reach the network, so callers should re-login rather than retry.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrInvalidToken)
}

// Message returns the user-facing text for err, or "" when err is nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *DisplayError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
