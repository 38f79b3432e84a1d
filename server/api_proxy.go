package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog/log"
)

func (s *Server) newAPIProxy(upstream *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			// The session cookie stays at the gateway; the backend only sees the bearer token
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			if ts, ok := TokenSetFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+ts.AccessToken)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Err(err).Str("path", r.URL.Path).Msg("backend API request failed")
			writeJSONError(w, "bad_gateway", "backend API unavailable", http.StatusBadGateway)
		},
	}
}

// APIProxyHandler forwards /api/v1/... to the backend with the session's access token.
// A 401 from the backend means the token is no longer accepted: the session is signed out and cleared.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, _ := TokenSetFromContext(r.Context())

		iw := &unauthorizedInterceptor{
			ResponseWriter: w,
			onUnauthorized: func() {
				log.Warn().
					Str("session_id", ts.SessionID).
					Str("path", r.URL.Path).
					Msg("backend rejected access token, signing out")
				s.tokens.SignOut(r.Context(), ts)
				if err := s.sessions.Clear(w, r); err != nil {
					log.Err(err).Msg("failed to clear session")
				}
			},
		}
		s.apiProxy.ServeHTTP(iw, r)
	}
}

// unauthorizedInterceptor runs onUnauthorized before a 401 status is written,
// while response headers can still be changed.
type unauthorizedInterceptor struct {
	http.ResponseWriter
	onUnauthorized func()
	wroteHeader    bool
}

func (w *unauthorizedInterceptor) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if status == http.StatusUnauthorized {
			w.onUnauthorized()
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *unauthorizedInterceptor) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *unauthorizedInterceptor) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
