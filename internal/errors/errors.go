package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Identity provider errors
	ErrIdentityProvider    = errors.New("identity provider request failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNoIDToken           = errors.New("no id_token in token response")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrRevocationSkipped   = errors.New("no revocation endpoint advertised")
	ErrMissingSubjectClaim = errors.New("token has no sub claim")

	// Token lifecycle errors
	ErrRefreshFailed       = errors.New("refresh failed")
	ErrMissingRefreshToken = errors.New("missing refresh token")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInvalid  = errors.New("session cookie invalid")

	// Authorization flow errors
	ErrInvalidState   = errors.New("invalid state parameter")
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
