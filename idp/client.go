// Package idp is the OpenID Connect relying-party client for the HireAI identity provider (Keycloak).
//
// Endpoints are taken from the issuer's discovery document. Every exchange goes through an
// http.Client with a bounded timeout, so a hung provider surfaces as an error rather than a stuck request.
package idp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/hireai-gateway/internal/config"
	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/oauth2"
	"github.com/rs/zerolog/log"
	oauth2lib "golang.org/x/oauth2"
)

// providerEndpoints are discovery fields go-oidc does not expose directly.
type providerEndpoints struct {
	EndSession string `json:"end_session_endpoint"`
	Revocation string `json:"revocation_endpoint"`
}

// Client performs grants, userinfo lookups and sign-out against one issuer.
type Client struct {
	provider   *oidc.Provider
	oauth      *oauth2lib.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
	endpoints  providerEndpoints
}

// New discovers the issuer and builds a client for it.
func New(ctx context.Context, cfg config.OIDCConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.GetIDPTimeout()}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.GetIssuerURL())
	if err != nil {
		return nil, fmt.Errorf("[idp New] failed to create OIDC provider: %w", err)
	}

	var endpoints providerEndpoints
	if err := provider.Claims(&endpoints); err != nil {
		return nil, fmt.Errorf("[idp New] failed to read discovery document: %w", err)
	}

	// Keycloak confidential clients authenticate with client_secret in the form body
	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2lib.AuthStyleInParams

	return &Client{
		provider: provider,
		oauth: &oauth2lib.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			Endpoint:     endpoint,
			RedirectURL:  cfg.GetCallbackURL(),
			Scopes:       cfg.GetScopes(),
		},
		verifier: provider.Verifier(&oidc.Config{
			ClientID: cfg.GetClientID(),
		}),
		httpClient: httpClient,
		endpoints:  endpoints,
	}, nil
}

// PasswordGrant signs a user in with username and password (grant_type=password).
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*oauth2.TokenResponse, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.withClient(ctx), username, password)
	if err != nil {
		if isInvalidGrant(err) {
			return nil, fmt.Errorf("%w: %w", gwerrors.ErrInvalidCredentials, err)
		}
		return nil, providerError("password grant", err)
	}
	return tokenResponse(oauth2.PasswordGrant, tok), nil
}

// RefreshGrant exchanges a refresh token for a new token set (grant_type=refresh_token).
// When the provider does not rotate the refresh token, the one sent is returned.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2lib.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, providerError("refresh grant", err)
	}
	return tokenResponse(oauth2.RefreshTokenGrant, tok), nil
}

// UserInfo fetches the profile of the user the access token was issued to.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*oauth2.UserInfo, error) {
	info, err := c.provider.UserInfo(c.withClient(ctx), oauth2lib.StaticTokenSource(&oauth2lib.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, providerError("userinfo", err)
	}

	var claims struct {
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := info.Claims(&claims); err != nil {
		log.Debug().Err(err).Str("subject", info.Subject).Msg("userinfo profile claims unreadable, name left blank")
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}
	return &oauth2.UserInfo{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          name,
	}, nil
}

// AuthCodeURL is the provider login URL for the authorization code flow with PKCE (S256).
func (c *Client) AuthCodeURL(state, nonce, verifier string) string {
	return c.oauth.AuthCodeURL(state, oidc.Nonce(nonce), oauth2lib.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for tokens. The response must carry an ID token.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.TokenResponse, error) {
	tok, err := c.oauth.Exchange(c.withClient(ctx), code, oauth2lib.VerifierOption(verifier))
	if err != nil {
		return nil, providerError("code exchange", err)
	}
	resp := tokenResponse(oauth2.AuthorizationCodeGrant, tok)
	if resp.IDToken == "" {
		return nil, gwerrors.ErrNoIDToken
	}
	return resp, nil
}

// VerifyIDToken checks the ID token signature, issuer, audience, expiry and nonce and returns its identity claims.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*oauth2.UserInfo, error) {
	idToken, err := c.verifier.Verify(c.withClient(ctx), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[idp VerifyIDToken] verification failed: %w", err)
	}

	var claims struct {
		Nonce         string `json:"nonce"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[idp VerifyIDToken] failed to extract claims: %w", err)
	}

	// Prevent replay of an ID token issued for another login attempt
	if claims.Nonce != nonce {
		return nil, gwerrors.ErrInvalidNonce
	}

	return &oauth2.UserInfo{
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// EndSessionURL builds the browser redirect that also ends the provider's own session.
// Returns "" when the provider advertises no end_session_endpoint.
func (c *Client) EndSessionURL(idTokenHint, postLogoutRedirect string) string {
	if c.endpoints.EndSession == "" {
		return ""
	}
	u, err := url.Parse(c.endpoints.EndSession)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("client_id", c.oauth.ClientID)
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NewPKCEVerifier returns a fresh PKCE code verifier.
func NewPKCEVerifier() string {
	return oauth2lib.GenerateVerifier()
}

func (c *Client) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2lib.HTTPClient, c.httpClient)
}

func tokenResponse(grant oauth2.GrantType, tok *oauth2lib.Token) *oauth2.TokenResponse {
	resp := &oauth2.TokenResponse{
		GrantType:    grant,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if raw, ok := tok.Extra("id_token").(string); ok {
		resp.IDToken = raw
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return resp
}

func isInvalidGrant(err error) bool {
	var re *oauth2lib.RetrieveError
	return gwerrors.As(err, &re) && re.ErrorCode == "invalid_grant"
}

func providerError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", gwerrors.ErrIdentityProvider, op, err)
}
