package idpfake

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/oauth2"
)

// FakeIdentityProvider is an in-memory identity provider that records every call.
// Responses are programmable through the exported fields; zero values give a happy path.
type FakeIdentityProvider struct {
	mu sync.Mutex

	// RefreshFunc answers RefreshGrant. Defaults to a 300s token "A2" without rotation.
	RefreshFunc func(refreshToken string) (*oauth2.TokenResponse, error)
	// PasswordFunc answers PasswordGrant. Defaults to accepting any password.
	PasswordFunc func(username, password string) (*oauth2.TokenResponse, error)
	// UserInfoErr makes UserInfo fail.
	UserInfoErr error
	// RevokeErr makes Revoke fail.
	RevokeErr error
	// ExchangeErr makes Exchange fail.
	ExchangeErr error
	// User is returned by UserInfo and VerifyIDToken.
	User oauth2.UserInfo
	// Nonce is the nonce VerifyIDToken accepts. Empty accepts any.
	Nonce string

	// HoldRefresh, when non-nil, blocks RefreshGrant until it is closed.
	HoldRefresh chan struct{}
	// RefreshStarted receives once per RefreshGrant call when non-nil.
	RefreshStarted chan struct{}

	refreshCalls  []string
	passwordCalls []string
	revokeCalls   []string
	exchangeCalls []string
}

func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		User: oauth2.UserInfo{
			Subject: "user-1",
			Email:   "john.doe@example.com",
			Name:    "John Doe",
		},
	}
}

func (f *FakeIdentityProvider) PasswordGrant(_ context.Context, username, password string) (*oauth2.TokenResponse, error) {
	f.mu.Lock()
	f.passwordCalls = append(f.passwordCalls, username)
	fn := f.PasswordFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(username, password)
	}
	return &oauth2.TokenResponse{
		GrantType:    oauth2.PasswordGrant,
		AccessToken:  "A1",
		RefreshToken: "R1",
		IDToken:      "ID1",
		ExpiresIn:    300,
	}, nil
}

func (f *FakeIdentityProvider) RefreshGrant(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls = append(f.refreshCalls, refreshToken)
	fn, hold, started := f.RefreshFunc, f.HoldRefresh, f.RefreshStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", gwerrors.ErrIdentityProvider, ctx.Err())
		}
	}

	if fn != nil {
		return fn(refreshToken)
	}
	return &oauth2.TokenResponse{
		GrantType:   oauth2.RefreshTokenGrant,
		AccessToken: "A2",
		IDToken:     "ID2",
		ExpiresIn:   300,
	}, nil
}

func (f *FakeIdentityProvider) UserInfo(_ context.Context, _ string) (*oauth2.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UserInfoErr != nil {
		return nil, f.UserInfoErr
	}
	u := f.User
	return &u, nil
}

func (f *FakeIdentityProvider) Revoke(_ context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls = append(f.revokeCalls, refreshToken)
	return f.RevokeErr
}

func (f *FakeIdentityProvider) AuthCodeURL(state, nonce, verifier string) string {
	q := url.Values{"state": {state}, "nonce": {nonce}, "code_challenge": {verifier}}
	return "https://idp.example.com/auth?" + q.Encode()
}

func (f *FakeIdentityProvider) Exchange(_ context.Context, code, _ string) (*oauth2.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls = append(f.exchangeCalls, code)
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	return &oauth2.TokenResponse{
		GrantType:    oauth2.AuthorizationCodeGrant,
		AccessToken:  "A-code",
		RefreshToken: "R-code",
		IDToken:      "ID-code",
		ExpiresIn:    300,
		Expiry:       time.Now().Add(300 * time.Second),
	}, nil
}

func (f *FakeIdentityProvider) VerifyIDToken(_ context.Context, _ string, nonce string) (*oauth2.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Nonce != "" && f.Nonce != nonce {
		return nil, gwerrors.ErrInvalidNonce
	}
	u := f.User
	return &u, nil
}

func (f *FakeIdentityProvider) EndSessionURL(idTokenHint, postLogoutRedirect string) string {
	q := url.Values{"id_token_hint": {idTokenHint}, "post_logout_redirect_uri": {postLogoutRedirect}}
	return "https://idp.example.com/logout?" + q.Encode()
}

// RefreshCalls returns the refresh tokens sent to RefreshGrant, in order.
func (f *FakeIdentityProvider) RefreshCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshCalls...)
}

// RevokeCalls returns the refresh tokens sent to Revoke, in order.
func (f *FakeIdentityProvider) RevokeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revokeCalls...)
}

func (f *FakeIdentityProvider) PasswordCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.passwordCalls...)
}

func (f *FakeIdentityProvider) ExchangeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.exchangeCalls...)
}
