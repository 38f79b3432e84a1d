package server

import (
	"net/http"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/rs/zerolog/log"
)

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// sessionView is the session as the browser sees it (the NextAuth session callback shape).
type sessionView struct {
	User        sessionUser      `json:"user"`
	AccessToken string           `json:"accessToken,omitempty"`
	IDToken     string           `json:"idToken,omitempty"`
	ExpiresAt   *int64           `json:"expiresAt,omitempty"`
	Provider    tokens.Provider  `json:"provider,omitempty"`
	State       tokens.State     `json:"state"`
	Error       tokens.ErrorCode `json:"error,omitempty"`
	URL         string           `json:"url,omitempty"`
}

func newSessionView(ts tokens.TokenSet, state tokens.State) sessionView {
	return sessionView{
		User: sessionUser{
			ID:    ts.SubjectID,
			Email: ts.Email,
			Name:  ts.Name,
		},
		AccessToken: ts.AccessToken,
		IDToken:     ts.IDToken,
		ExpiresAt:   ts.ExpiresAt,
		Provider:    ts.Provider,
		State:       state,
		Error:       ts.Error,
	}
}

// SessionHandler returns the current session with a usable access token, refreshing it when due.
// Without a session it answers with an empty object, as NextAuth does.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := s.loadValidSession(w, r)
		if err != nil {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(ts, s.tokens.State(ts)))
	}
}

type signOutResponse struct {
	URL string `json:"url"`
}

// SignOutHandler revokes the session's refresh token, clears the session and sends the browser
// to the provider's end-session endpoint (OIDC sessions) or the sign-in page.
// GET redirects; POST answers with the URL to navigate to.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := s.config.GetSignInPage()

		ts, err := s.sessions.Load(r)
		if err == nil {
			s.tokens.SignOut(r.Context(), ts)
			if ts.Provider == tokens.ProviderOIDC && ts.IDToken != "" {
				if endSession := s.idp.EndSessionURL(ts.IDToken, s.config.GetPostLogoutRedirectURL()); endSession != "" {
					target = endSession
				}
			}
			log.Info().Str("session_id", ts.SessionID).Str("subject", ts.SubjectID).Msg("signed out")
		}

		if err := s.sessions.Clear(w, r); err != nil {
			log.Err(err).Msg("failed to clear session")
		}

		if r.Method == http.MethodGet {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, signOutResponse{URL: target})
	}
}

// loadValidSession loads the session, brings its token set up to date and persists any change.
// Sessions whose cookie is expired or unreadable are cleared.
func (s *Server) loadValidSession(w http.ResponseWriter, r *http.Request) (tokens.TokenSet, error) {
	current, err := s.sessions.Load(r)
	if err != nil {
		if gwerrors.Is(err, gwerrors.ErrSessionExpired) || gwerrors.Is(err, gwerrors.ErrSessionInvalid) {
			log.Debug().Err(err).Msg("discarding unusable session")
			_ = s.sessions.Clear(w, r)
		}
		return tokens.TokenSet{}, err
	}

	ts := s.tokens.GetValidToken(r.Context(), current)
	if ts.Failed() && !current.Failed() {
		// Another request may have refreshed the session after this one loaded it
		if latest, err := s.sessions.Load(r); err == nil && !latest.Failed() && latest.RefreshToken != current.RefreshToken {
			log.Debug().Str("session_id", latest.SessionID).Msg("session was refreshed by a concurrent request")
			ts, current = s.tokens.GetValidToken(r.Context(), latest), latest
		}
	}
	if !ts.Equal(current) {
		if err := s.sessions.Save(w, r, ts); err != nil {
			log.Err(err).Str("session_id", ts.SessionID).Msg("failed to persist refreshed session")
		}
	}
	return ts, nil
}
