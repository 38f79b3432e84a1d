package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/hireai-gateway/tokens"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyTokenSet stores the session's current token set
const ContextKeyTokenSet ContextKey = "token_set"

type unauthorizedResponse struct {
	Error     string `json:"error"`
	SignInURL string `json:"signInUrl"`
}

// RequireSession is middleware that only lets requests through whose session holds a usable access token.
// The token set is refreshed when due and placed in the request context.
// Sessions that are missing or carry a terminal error are rejected so the client re-authenticates.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ts, err := s.loadValidSession(w, r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, unauthorizedResponse{
					Error:     "unauthorized",
					SignInURL: s.config.GetSignInPage(),
				})
				return
			}

			if ts.Failed() {
				writeJSON(w, http.StatusUnauthorized, unauthorizedResponse{
					Error:     string(ts.Error),
					SignInURL: s.config.GetSignInPage(),
				})
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTokenSet, ts)
			next(w, r.WithContext(ctx))
		}
	}
}

// TokenSetFromContext returns the token set RequireSession stored in ctx.
func TokenSetFromContext(ctx context.Context) (tokens.TokenSet, bool) {
	ts, ok := ctx.Value(ContextKeyTokenSet).(tokens.TokenSet)
	return ts, ok
}
