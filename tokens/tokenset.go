package tokens

import "time"

// Provider records which sign-in path produced a token set.
type Provider string

const (
	ProviderOIDC        Provider = "oidc"
	ProviderCredentials Provider = "credentials"
)

// ErrorCode marks a token set as unusable. Any value other than ErrorNone is terminal.
type ErrorCode string

const (
	ErrorNone                ErrorCode = ""
	ErrorRefreshFailed       ErrorCode = "refresh_failed"
	ErrorMissingRefreshToken ErrorCode = "missing_refresh_token"
)

// State is the lifecycle position of a token set.
type State string

const (
	StateValid      State = "valid"
	StateExpiring   State = "expiring"
	StateRefreshing State = "refreshing"
	StateFailed     State = "failed"
)

// TokenSet is the credential material held for one authenticated session.
// Empty strings stand for absent tokens; a nil ExpiresAt means the provider never reported an expiry.
type TokenSet struct {
	SessionID    string    `json:"sid"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IDToken      string    `json:"idToken,omitempty"`
	ExpiresAt    *int64    `json:"expiresAt,omitempty"` // unix seconds
	Provider     Provider  `json:"provider,omitempty"`
	SubjectID    string    `json:"sub"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	Error        ErrorCode `json:"error,omitempty"`
}

// Failed reports whether the token set carries a terminal error.
func (t TokenSet) Failed() bool {
	return t.Error != ErrorNone
}

// Expiry returns ExpiresAt as a time and whether one is set.
func (t TokenSet) Expiry() (time.Time, bool) {
	if t.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.Unix(*t.ExpiresAt, 0), true
}

// needsRefresh is true once fewer than buffer remains before expiry.
// Token sets without an expiry never need a refresh.
func (t TokenSet) needsRefresh(now time.Time, buffer time.Duration) bool {
	exp, ok := t.Expiry()
	if !ok {
		return false
	}
	return exp.Sub(now) <= buffer
}

// StateAt classifies the token set without knowledge of in-flight refreshes.
func (t TokenSet) StateAt(now time.Time, buffer time.Duration) State {
	switch {
	case t.Failed():
		return StateFailed
	case t.needsRefresh(now, buffer):
		return StateExpiring
	default:
		return StateValid
	}
}

func (t TokenSet) flightKey() string {
	if t.SessionID != "" {
		return "sid:" + t.SessionID
	}
	return "rt:" + t.RefreshToken
}

// Equal reports whether two token sets hold the same values.
func (t TokenSet) Equal(o TokenSet) bool {
	if (t.ExpiresAt == nil) != (o.ExpiresAt == nil) {
		return false
	}
	if t.ExpiresAt != nil && *t.ExpiresAt != *o.ExpiresAt {
		return false
	}
	a, b := t, o
	a.ExpiresAt, b.ExpiresAt = nil, nil
	return a == b
}
