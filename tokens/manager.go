package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/hireai-gateway/internal/config"
	"github.com/jrsteele09/hireai-gateway/internal/metrics"
	"github.com/jrsteele09/hireai-gateway/internal/utils"
	"github.com/jrsteele09/hireai-gateway/oauth2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// IdentityProvider is the part of the identity provider client the manager drives.
type IdentityProvider interface {
	RefreshGrant(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// Manager decides, on every access, whether a session's token set is reused, refreshed or failed.
// Refreshes are single-flight per session: concurrent callers for the same session share one
// outbound refresh grant, while different sessions refresh independently.
type Manager struct {
	idp     IdentityProvider
	metrics *metrics.Metrics

	buffer            time.Duration
	defaultLifetime   time.Duration
	refreshTimeout    time.Duration
	revocationTimeout time.Duration

	flights singleflight.Group

	mu         sync.Mutex
	refreshing map[string]struct{}
	// completed holds each session's last refresh outcome for reuseWindow, keyed by flight key
	completed   map[string]completedRefresh
	reuseWindow time.Duration
}

// completedRefresh is the outcome of a finished refresh and the refresh token it consumed.
// Callers still presenting that token within the reuse window receive result instead of a new grant.
type completedRefresh struct {
	consumed string
	result   TokenSet
	at       time.Time
}

// NewManager creates a token lifecycle manager. A nil m registers metrics on a private registry.
func NewManager(idp IdentityProvider, cfg config.SessionConfig, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Manager{
		idp:               idp,
		metrics:           m,
		buffer:            cfg.GetRefreshBuffer(),
		defaultLifetime:   cfg.GetDefaultAccessTokenLifetime(),
		refreshTimeout:    cfg.GetRefreshTimeout(),
		revocationTimeout: cfg.GetRevocationTimeout(),
		refreshing:        make(map[string]struct{}),
		completed:         make(map[string]completedRefresh),
		reuseWindow:       cfg.GetRefreshTimeout(),
	}
}

// Initialize builds the token set for a new session from a successful sign-in.
func (m *Manager) Initialize(event SignInEvent) TokenSet {
	now := NowTimeFunc()
	ts := TokenSet{SessionID: uuid.NewString()}

	switch ev := event.(type) {
	case InitialOIDC:
		ts.Provider = ProviderOIDC
		ts.applyGrant(ev.Tokens)
		ts.applyUser(ev.User)
		switch {
		case !ev.Tokens.Expiry.IsZero():
			ts.ExpiresAt = utils.Ptr(ev.Tokens.Expiry.Unix())
		case ev.Tokens.ExpiresIn > 0:
			ts.ExpiresAt = utils.Ptr(now.Unix() + ev.Tokens.ExpiresIn)
		}
	case InitialCredentials:
		ts.Provider = ProviderCredentials
		ts.applyGrant(ev.Tokens)
		ts.applyUser(ev.User)
		ts.ExpiresAt = utils.Ptr(m.expiresAt(now, ev.Tokens.ExpiresIn))
	case *InitialOIDC:
		if ev != nil {
			return m.Initialize(*ev)
		}
		return m.unknownSignIn(ts, event)
	case *InitialCredentials:
		if ev != nil {
			return m.Initialize(*ev)
		}
		return m.unknownSignIn(ts, event)
	default:
		return m.unknownSignIn(ts, event)
	}

	m.metrics.SignInTotal.WithLabelValues(string(ts.Provider), metrics.OutcomeSuccess).Inc()
	log.Info().
		Str("session_id", ts.SessionID).
		Str("subject", ts.SubjectID).
		Str("provider", string(ts.Provider)).
		Msg("session initialised")
	return ts
}

// GetValidToken returns a token set usable for at least the refresh buffer, or one marked with a terminal error.
// It never returns an error: failures are reported through TokenSet.Error.
func (m *Manager) GetValidToken(ctx context.Context, current TokenSet) TokenSet {
	if current.Failed() {
		return current
	}

	if !current.needsRefresh(NowTimeFunc(), m.buffer) {
		return current
	}

	if current.RefreshToken == "" {
		current.Error = ErrorMissingRefreshToken
		m.metrics.TerminalTotal.WithLabelValues(string(ErrorMissingRefreshToken)).Inc()
		log.Warn().
			Str("session_id", current.SessionID).
			Str("subject", current.SubjectID).
			Msg("access token expiring and no refresh token held")
		return current
	}

	return m.refresh(ctx, current)
}

// State reports the lifecycle state of ts, including whether a refresh for its session is in flight.
func (m *Manager) State(ts TokenSet) State {
	if ts.Failed() {
		return StateFailed
	}
	m.mu.Lock()
	_, inFlight := m.refreshing[ts.flightKey()]
	m.mu.Unlock()
	if inFlight {
		return StateRefreshing
	}
	return ts.StateAt(NowTimeFunc(), m.buffer)
}

// SignOut revokes the session's refresh token at the provider when that makes sense.
// It always completes; revocation failures are only logged.
func (m *Manager) SignOut(ctx context.Context, ts TokenSet) {
	logger := log.With().Str("session_id", ts.SessionID).Str("provider", string(ts.Provider)).Logger()

	if ts.Provider != ProviderOIDC || ts.RefreshToken == "" {
		m.metrics.RevocationTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		logger.Debug().Msg("sign-out without revocation")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.revocationTimeout)
	defer cancel()

	if err := m.idp.Revoke(ctx, ts.RefreshToken); err != nil {
		m.metrics.RevocationTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		logger.Warn().Err(err).Msg("refresh token revocation failed")
		return
	}
	m.metrics.RevocationTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.Debug().Msg("refresh token revoked")
}

// unknownSignIn is an event that carries no tokens; the session is born failed so it is never used.
func (m *Manager) unknownSignIn(ts TokenSet, event SignInEvent) TokenSet {
	log.Warn().Msgf("[tokens Initialize] unknown sign-in event %T", event)
	ts.Error = ErrorRefreshFailed
	m.metrics.TerminalTotal.WithLabelValues(string(ErrorRefreshFailed)).Inc()
	return ts
}

// refresh runs at most one refresh grant per expiry of a session. Callers joining a flight share its
// result, and callers arriving after it with the refresh token it consumed get the stored outcome.
func (m *Manager) refresh(ctx context.Context, current TokenSet) TokenSet {
	key := current.flightKey()

	if result, ok := m.completedResult(key, current.RefreshToken); ok {
		m.metrics.RefreshSharedTotal.Inc()
		return result
	}

	m.metrics.RefreshWaiters.Inc()
	granted := false
	v, _, _ := m.flights.Do(key, func() (any, error) {
		if result, ok := m.completedResult(key, current.RefreshToken); ok {
			return result, nil
		}
		granted = true
		m.setRefreshing(key, true)
		defer m.setRefreshing(key, false)

		result := m.doRefresh(ctx, current)
		m.storeCompleted(key, current.RefreshToken, result)
		return result, nil
	})
	m.metrics.RefreshWaiters.Dec()

	if !granted {
		m.metrics.RefreshSharedTotal.Inc()
	}
	return v.(TokenSet)
}

func (m *Manager) completedResult(key, refreshToken string) (TokenSet, bool) {
	now := NowTimeFunc()

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.completed[key]
	if !ok || c.consumed != refreshToken || now.Sub(c.at) >= m.reuseWindow {
		return TokenSet{}, false
	}
	if !c.result.Failed() && c.result.needsRefresh(now, m.buffer) {
		return TokenSet{}, false
	}
	return c.result, true
}

func (m *Manager) storeCompleted(key, consumed string, result TokenSet) {
	now := NowTimeFunc()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.completed {
		if now.Sub(c.at) >= m.reuseWindow {
			delete(m.completed, k)
		}
	}
	m.completed[key] = completedRefresh{consumed: consumed, result: result, at: now}
}

// doRefresh performs the refresh grant. The call is detached from the caller's cancellation because
// other callers may be waiting on it; it is bounded by the refresh timeout instead.
func (m *Manager) doRefresh(ctx context.Context, current TokenSet) TokenSet {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
	defer cancel()

	resp, err := m.idp.RefreshGrant(ctx, current.RefreshToken)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errMissingAccessToken
	}
	if err != nil {
		m.metrics.RefreshTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		m.metrics.TerminalTotal.WithLabelValues(string(ErrorRefreshFailed)).Inc()
		log.Warn().Err(err).
			Str("session_id", current.SessionID).
			Str("subject", current.SubjectID).
			Msg("token refresh failed")
		current.Error = ErrorRefreshFailed
		return current
	}

	next := current
	next.AccessToken = resp.AccessToken
	if resp.IDToken != "" {
		next.IDToken = resp.IDToken
	}
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	next.ExpiresAt = utils.Ptr(m.expiresAt(NowTimeFunc(), resp.ExpiresIn))
	next.Error = ErrorNone

	m.metrics.RefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Debug().
		Str("session_id", next.SessionID).
		Int64("expires_at", *next.ExpiresAt).
		Bool("rotated", resp.RefreshToken != "" && resp.RefreshToken != current.RefreshToken).
		Msg("token refreshed")
	return next
}

func (m *Manager) expiresAt(now time.Time, expiresIn int64) int64 {
	if expiresIn <= 0 {
		return now.Add(m.defaultLifetime).Unix()
	}
	return now.Unix() + expiresIn
}

func (m *Manager) setRefreshing(key string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on {
		m.refreshing[key] = struct{}{}
		return
	}
	delete(m.refreshing, key)
}

func (t *TokenSet) applyGrant(resp oauth2.TokenResponse) {
	t.AccessToken = resp.AccessToken
	t.RefreshToken = resp.RefreshToken
	t.IDToken = resp.IDToken
}

func (t *TokenSet) applyUser(u oauth2.UserInfo) {
	t.SubjectID = u.Subject
	t.Email = u.Email
	t.Name = u.Name
}
