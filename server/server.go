package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/hireai-gateway/internal/config"
	"github.com/jrsteele09/hireai-gateway/internal/metrics"
	"github.com/jrsteele09/hireai-gateway/oauth2"
	"github.com/jrsteele09/hireai-gateway/server/authflowrepo"
	"github.com/jrsteele09/hireai-gateway/sessions"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/rs/zerolog/log"
)

// IdentityProvider is everything the gateway asks of the OpenID Connect provider.
type IdentityProvider interface {
	tokens.IdentityProvider
	PasswordGrant(ctx context.Context, username, password string) (*oauth2.TokenResponse, error)
	UserInfo(ctx context.Context, accessToken string) (*oauth2.UserInfo, error)
	AuthCodeURL(state, nonce, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.TokenResponse, error)
	VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*oauth2.UserInfo, error)
	EndSessionURL(idTokenHint, postLogoutRedirect string) string
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	idp       IdentityProvider
	tokens    *tokens.Manager
	sessions  sessions.Store
	authFlows authflowrepo.Repo
	metrics   *metrics.Metrics
	apiProxy  http.Handler
}

func New(config config.Config, idp IdentityProvider, manager *tokens.Manager, store sessions.Store, authFlows authflowrepo.Repo, m *metrics.Metrics) (*Server, error) {
	upstream, err := url.Parse(config.GetAPIUpstreamURL())
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("[Server New] invalid API upstream URL %q", config.GetAPIUpstreamURL())
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		idp:       idp,
		tokens:    manager,
		sessions:  store,
		authFlows: authFlows,
		metrics:   m,
	}
	s.apiProxy = s.newAPIProxy(upstream)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
