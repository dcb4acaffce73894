package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/scribe/internal/shared"
)

// Claims is the identity decoded from a credential.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the credential has an expiry at or before now.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// decode parses token without verifying its signature.
//
// The signing key stays on the server; the client only needs the subject and the expiry.
func decode(token string, now func() time.Time) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrInvalidToken)
	}

	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}

	validator := jwt.NewValidator(jwt.WithTimeFunc(now))
	if err := validator.Validate(registered); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if registered.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", shared.ErrInvalidToken)
	}

	claims := &Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}
