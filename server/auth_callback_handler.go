package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/jrsteele09/hireai-gateway/idp"
	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/internal/metrics"
	"github.com/jrsteele09/hireai-gateway/oauth2"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/rs/zerolog/log"
)

// Sign-in error codes understood by the NextAuth sign-in page
const (
	errorCodeOAuthCallback    = "OAuthCallback"
	errorCodeCredentialsLogin = "CredentialsSignin"
)

// OIDCCallbackHandler completes the authorization code flow and creates the session.
func (s *Server) OIDCCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		signInPage := s.config.GetSignInPage()

		// Check for authorization errors
		if errorParam := r.FormValue("error"); errorParam != "" {
			log.Warn().
				Str("error", errorParam).
				Str("error_description", r.FormValue("error_description")).
				Msg("provider returned an authorization error")
			s.signInFailed(tokens.ProviderOIDC)
			redirectWithError(w, r, signInPage, errorCodeOAuthCallback)
			return
		}

		if code == "" || state == "" {
			writeJSONError(w, "invalid_request", "missing code or state parameter", http.StatusBadRequest)
			return
		}

		// The state must belong to the browser that started the flow
		cookie, err := r.Cookie(authFlowCookieName)
		if err != nil || cookie.Value != state {
			writeJSONError(w, "invalid_request", gwerrors.ErrInvalidState.Error(), http.StatusBadRequest)
			return
		}
		s.ClearAuthFlowCookie(w, r)

		flow, err := s.authFlows.Take(state)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := s.idp.Exchange(r.Context(), code, flow.CodeVerifier)
		if err != nil {
			log.Err(err).Msg("authorization code exchange failed")
			s.signInFailed(tokens.ProviderOIDC)
			redirectWithError(w, r, signInPage, errorCodeOAuthCallback)
			return
		}

		user, err := s.idp.VerifyIDToken(r.Context(), resp.IDToken, flow.Nonce)
		if err != nil {
			log.Err(err).Msg("ID token verification failed")
			s.signInFailed(tokens.ProviderOIDC)
			redirectWithError(w, r, signInPage, errorCodeOAuthCallback)
			return
		}

		ts := s.tokens.Initialize(tokens.InitialOIDC{Tokens: *resp, User: *user})
		if err := s.sessions.Save(w, r, ts); err != nil {
			log.Err(err).Str("session_id", ts.SessionID).Msg("failed to save session")
			writeJSONError(w, "server_error", "failed to create session", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, flow.ReturnURL, http.StatusSeeOther)
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl"`
}

// CredentialsCallbackHandler signs a user in with email and password through the provider's password grant.
// Accepts a JSON body or a form post.
func (s *Server) CredentialsCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readCredentials(w, r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		username := req.Email
		if username == "" {
			username = req.Username
		}
		if username == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "email and password are required", http.StatusBadRequest)
			return
		}

		resp, err := s.idp.PasswordGrant(r.Context(), username, req.Password)
		if err != nil {
			s.signInFailed(tokens.ProviderCredentials)
			if gwerrors.Is(err, gwerrors.ErrInvalidCredentials) {
				log.Info().Msg("credentials sign-in rejected")
				writeJSONError(w, errorCodeCredentialsLogin, "invalid email or password", http.StatusUnauthorized)
				return
			}
			log.Err(err).Msg("password grant failed")
			writeJSONError(w, "provider_error", "identity provider unavailable", http.StatusBadGateway)
			return
		}

		user, err := s.credentialsUser(r, resp, username)
		if err != nil {
			log.Err(err).Msg("could not identify signed-in user")
			s.signInFailed(tokens.ProviderCredentials)
			writeJSONError(w, "provider_error", "could not identify user", http.StatusBadGateway)
			return
		}

		ts := s.tokens.Initialize(tokens.InitialCredentials{Tokens: *resp, User: *user})
		if err := s.sessions.Save(w, r, ts); err != nil {
			log.Err(err).Str("session_id", ts.SessionID).Msg("failed to save session")
			writeJSONError(w, "server_error", "failed to create session", http.StatusInternalServerError)
			return
		}

		view := newSessionView(ts, s.tokens.State(ts))
		view.URL = safeReturnURL(req.CallbackURL)
		writeJSON(w, http.StatusOK, view)
	}
}

// credentialsUser looks the user up via userinfo, falling back to the access token's sub claim
func (s *Server) credentialsUser(r *http.Request, resp *oauth2.TokenResponse, username string) (*oauth2.UserInfo, error) {
	user, err := s.idp.UserInfo(r.Context(), resp.AccessToken)
	if err == nil {
		return user, nil
	}
	log.Warn().Err(err).Msg("userinfo failed, reading subject from access token")

	sub, subErr := idp.SubjectFromAccessToken(resp.AccessToken)
	if subErr != nil {
		return nil, gwerrors.Wrapf(subErr, "userinfo: %v", err)
	}
	user = &oauth2.UserInfo{Subject: sub}
	if strings.Contains(username, "@") {
		user.Email = username
	}
	return user, nil
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			return req, gwerrors.Wrapf(gwerrors.ErrInvalidRequest, "malformed JSON body: %v", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, gwerrors.Wrapf(gwerrors.ErrInvalidRequest, "malformed form body: %v", err)
	}
	req.Email = r.PostFormValue("email")
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	req.CallbackURL = r.PostFormValue("callbackUrl")
	return req, nil
}

func (s *Server) signInFailed(provider tokens.Provider) {
	s.metrics.SignInTotal.WithLabelValues(string(provider), metrics.OutcomeFailure).Inc()
}
