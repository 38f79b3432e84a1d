package sessions

import (
	"context"

	"github.com/jrsteele09/hireai-gateway/tokens"
)

// Repo stores TokenSets server side, keyed by session ID.
type Repo interface {
	Upsert(ctx context.Context, sessionID string, ts tokens.TokenSet) error
	Get(ctx context.Context, sessionID string) (tokens.TokenSet, error)
	Delete(ctx context.Context, sessionID string) error
}
