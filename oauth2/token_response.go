package oauth2

import "time"

// TokenResponse is what the identity provider returned for a grant.
// This mirrors the token endpoint response format defined in RFC 6749,
// with expiry resolved to an absolute time by the client that performed the grant.
type TokenResponse struct {
	// GrantType records which grant produced this response.
	GrantType GrantType `json:"-"`

	// AccessToken is the bearer credential presented to the backend API.
	// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."
	AccessToken string `json:"access_token"`

	// IDToken is the OpenID Connect ID token.
	// Only present: when the "openid" scope was requested
	// Usage: id_token_hint on federated sign-out
	IDToken string `json:"id_token,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Empty when the provider did not issue (or did not rotate) one.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token as reported by the provider.
	// Zero means the provider did not report one.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// Expiry is the absolute expiry computed when the response was received.
	// Zero when ExpiresIn is zero.
	Expiry time.Time `json:"-"`

	// Scope is the space-separated list of granted scopes.
	Scope string `json:"scope,omitempty"`
}
