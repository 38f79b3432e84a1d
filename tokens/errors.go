package tokens

import (
	"fmt"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
)

var errMissingAccessToken = fmt.Errorf("%w: provider returned no access token", gwerrors.ErrRefreshFailed)

// Err converts a terminal error code into an error for callers that need one.
// It returns nil for a usable token set.
func (t TokenSet) Err() error {
	switch t.Error {
	case ErrorNone:
		return nil
	case ErrorMissingRefreshToken:
		return gwerrors.ErrMissingRefreshToken
	default:
		return gwerrors.ErrRefreshFailed
	}
}
