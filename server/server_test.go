package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/hireai-gateway/idp/idpfake"
	"github.com/jrsteele09/hireai-gateway/internal/config"
	"github.com/jrsteele09/hireai-gateway/internal/metrics"
	"github.com/jrsteele09/hireai-gateway/server"
	"github.com/jrsteele09/hireai-gateway/server/authflowrepo"
	"github.com/jrsteele09/hireai-gateway/sessions"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.Config
	apiURL string
}

func (c testConfig) GetAPIUpstreamURL() string {
	return c.apiURL
}

func (testConfig) GetEnv() string {
	return "TEST"
}

// backendCall is what the fake backend API saw
type backendCall struct {
	Path          string
	Authorization string
	Cookie        string
}

type testEnv struct {
	idp     *idpfake.FakeIdentityProvider
	metrics *metrics.Metrics
	gateway *httptest.Server
	client  *http.Client

	mu       sync.Mutex
	backend  []backendCall
	upstream *httptest.Server
}

func newTestEnv(t *testing.T, store sessions.Store) *testEnv {
	t.Helper()

	env := &testEnv{
		idp:     idpfake.NewFakeIdentityProvider(),
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.backend = append(env.backend, backendCall{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Cookie:        r.Header.Get("Cookie"),
		})
		env.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/unauthorized") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jobs":[]}`)
	}))
	t.Cleanup(env.upstream.Close)

	cfg := testConfig{Config: config.New(), apiURL: env.upstream.URL}
	if store == nil {
		store = sessions.NewRepoStore(sessions.NewInMemoryRepo(time.Hour), sessions.CookieOptions{
			Name:   cfg.GetSessionCookieName(),
			MaxAge: time.Hour,
		})
	}

	manager := tokens.NewManager(env.idp, cfg, env.metrics)
	srv, err := server.New(cfg, env.idp, manager, store, authflowrepo.NewInMemoryRepo(10*time.Minute), env.metrics)
	require.NoError(t, err)

	env.gateway = httptest.NewServer(srv)
	t.Cleanup(env.gateway.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.gateway.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodGet, path, nil, "")
}

func (e *testEnv) signInWithCredentials(t *testing.T) map[string]any {
	t.Helper()
	resp := e.do(t, http.MethodPost, server.RouteCallbackCredentials,
		strings.NewReader(`{"email":"john.doe@example.com","password":"secret"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode(t, resp)
}

func (e *testEnv) session(t *testing.T) map[string]any {
	t.Helper()
	resp := e.get(t, server.RouteSession)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode(t, resp)
}

func (e *testEnv) backendCalls() []backendCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]backendCall(nil), e.backend...)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// signInWithOIDC runs the authorization code flow against the fake provider and returns the redirect target.
func (e *testEnv) signInWithOIDC(t *testing.T, callbackURL string) string {
	t.Helper()

	resp := e.get(t, server.RouteSignIn+"?callbackUrl="+url.QueryEscape(callbackURL))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	nonce := authURL.Query().Get("nonce")
	require.NotEmpty(t, state)
	require.NotEmpty(t, nonce)
	e.idp.Nonce = nonce

	resp = e.get(t, server.RouteCallbackOIDC+"?code=code-1&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return resp.Header.Get("Location")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, server.RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode(t, resp)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signInWithCredentials(t)

	resp := env.get(t, server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `hireai_gateway_signin_total{outcome="success",provider="credentials"} 1`)
}

func TestSessionWithoutCookieIsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Empty(t, env.session(t))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/v1/jobs", server.RouteCallbackCredentials, server.RouteSignOut, server.RouteSession} {
		t.Run(path, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, env.gateway.URL+path, nil)
			require.NoError(t, err)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := env.client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusNoContent, resp.StatusCode)
			require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
			require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		})
	}
	require.Empty(t, env.backendCalls())
	require.Empty(t, env.idp.PasswordCalls())
}
