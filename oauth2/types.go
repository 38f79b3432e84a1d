package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Used in: browser sign-in through the provider's login page
	// Token request includes: code, client_id, client_secret, redirect_uri, code_verifier
	// Returns: access_token, id_token, refresh_token (offline_access)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// PasswordGrant exchanges a username and password directly for tokens.
	// Used in: the credentials sign-in form
	// Token request includes: username, password, client_id, client_secret
	// Returns: access_token, id_token, refresh_token
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Used in: silent refresh of an expiring session
	// Token request includes: refresh_token, client_id, client_secret
	// Returns: new access_token and id_token; refresh_token only if the provider rotates it
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeHint tells a revocation endpoint which kind of token is being revoked (RFC 7009).
type TokenTypeHint string

const (
	RefreshTokenHint TokenTypeHint = "refresh_token"
	AccessTokenHint  TokenTypeHint = "access_token"
)
