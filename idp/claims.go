package idp

import (
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
)

// SubjectFromAccessToken reads the sub claim of a JWT access token without verifying it.
// Only use it on tokens just received from the provider over TLS.
func SubjectFromAccessToken(rawToken string) (string, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("[idp SubjectFromAccessToken] invalid token format: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("[idp SubjectFromAccessToken] %w", err)
	}
	if sub == "" {
		return "", gwerrors.ErrMissingSubjectClaim
	}
	return sub, nil
}
