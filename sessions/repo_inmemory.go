package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/tokens"
)

type inMemoryEntry struct {
	tokenSet  tokens.TokenSet
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory Repo. Entries expire maxAge after their last write.
type InMemoryRepo struct {
	mu       sync.RWMutex
	maxAge   time.Duration
	sessions map[string]inMemoryEntry
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(maxAge time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		maxAge:   maxAge,
		sessions: make(map[string]inMemoryEntry),
	}
}

// Upsert creates or replaces a session
func (r *InMemoryRepo) Upsert(_ context.Context, sessionID string, ts tokens.TokenSet) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is required", gwerrors.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = inMemoryEntry{
		tokenSet:  ts,
		expiresAt: NowTimeFunc().Add(r.maxAge),
	}
	return nil
}

// Get retrieves a session, evicting it when it has outlived the max age
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (tokens.TokenSet, error) {
	if sessionID == "" {
		return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
	}

	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
	}
	if now := NowTimeFunc(); !now.Before(entry.expiresAt) {
		if current, ok := r.evictExpired(sessionID, now); !ok {
			return current, nil
		}
		return tokens.TokenSet{}, gwerrors.ErrSessionExpired
	}
	return entry.tokenSet, nil
}

// evictExpired deletes sessionID if it is still expired under the write lock.
// When an Upsert renewed it in the meantime, the fresh token set is returned with false.
func (r *InMemoryRepo) evictExpired(sessionID string, now time.Time) (tokens.TokenSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if ok && now.Before(entry.expiresAt) {
		return entry.tokenSet, false
	}
	delete(r.sessions, sessionID)
	return tokens.TokenSet{}, true
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Sweep evicts every expired session and returns how many were removed.
func (r *InMemoryRepo) Sweep() int {
	now := NowTimeFunc()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len is the number of stored sessions, expired ones included.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
