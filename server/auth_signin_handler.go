package server

import (
	"net/http"

	"github.com/jrsteele09/hireai-gateway/idp"
	"github.com/jrsteele09/hireai-gateway/server/authflowrepo"
	"github.com/rs/zerolog/log"
)

// SignInHandler starts the authorization code flow (GET /api/auth/signin?callbackUrl=/path).
// State, nonce and the PKCE verifier are remembered until the provider calls back.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateRandomString(32)
		nonce := generateRandomString(32)
		verifier := idp.NewPKCEVerifier()

		err := s.authFlows.Upsert(state, &authflowrepo.AuthFlowState{
			CodeVerifier: verifier,
			Nonce:        nonce,
			ReturnURL:    safeReturnURL(r.URL.Query().Get("callbackUrl")),
		})
		if err != nil {
			log.Err(err).Msg("failed to store auth flow state")
			writeJSONError(w, "server_error", "failed to start sign-in", http.StatusInternalServerError)
			return
		}

		s.SetAuthFlowCookie(w, state, r)
		http.Redirect(w, r, s.idp.AuthCodeURL(state, nonce, verifier), http.StatusFound)
	}
}
