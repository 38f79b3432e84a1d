package sessions

import (
	"fmt"
	"net/http"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/tokens"
)

// RepoStore keeps TokenSets in a Repo; the cookie only carries the session ID.
type RepoStore struct {
	repo    Repo
	options CookieOptions
}

var _ Store = (*RepoStore)(nil)

func NewRepoStore(repo Repo, options CookieOptions) *RepoStore {
	return &RepoStore{
		repo:    repo,
		options: options,
	}
}

func (s *RepoStore) Load(r *http.Request) (tokens.TokenSet, error) {
	cookie, err := r.Cookie(s.options.Name)
	if err != nil || cookie.Value == "" {
		return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
	}
	return s.repo.Get(r.Context(), cookie.Value)
}

func (s *RepoStore) Save(w http.ResponseWriter, r *http.Request, ts tokens.TokenSet) error {
	if ts.SessionID == "" {
		return fmt.Errorf("%w: token set has no session id", gwerrors.ErrInvalidRequest)
	}
	if err := s.repo.Upsert(r.Context(), ts.SessionID, ts); err != nil {
		return err
	}
	http.SetCookie(w, s.options.cookie(s.options.Name, ts.SessionID))
	return nil
}

func (s *RepoStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.options.expired(s.options.Name))

	cookie, err := r.Cookie(s.options.Name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.repo.Delete(r.Context(), cookie.Value)
}

// Repo is the repository the store keeps sessions in.
func (s *RepoStore) Repo() Repo {
	return s.repo
}
