package authflowrepo

import (
	"errors"
	"sync"
	"time"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Flows older than ttl are treated as missing.
type InMemoryRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]*AuthFlowState
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		ttl:    ttl,
		states: make(map[string]*AuthFlowState),
	}
}

// Upsert stores or updates an auth flow state and drops abandoned flows
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := NowTimeFunc()
	for key, s := range r.states {
		if r.expired(s, now) {
			delete(r.states, key)
		}
	}

	copied := *authState
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	r.states[state] = &copied
	return nil
}

// Take retrieves and deletes an auth flow state
func (r *InMemoryRepo) Take(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, gwerrors.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, gwerrors.ErrInvalidState
	}
	delete(r.states, state)

	if r.expired(authState, NowTimeFunc()) {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidState, "flow started at %s has expired", authState.CreatedAt.Format(time.RFC3339))
	}

	copied := *authState
	return &copied, nil
}

func (r *InMemoryRepo) expired(s *AuthFlowState, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.CreatedAt) > r.ttl
}
