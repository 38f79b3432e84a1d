package tokens

import "github.com/jrsteele09/hireai-gateway/oauth2"

// SignInEvent is the outcome of a successful authentication, tagged by the path that produced it.
// The only implementations are InitialOIDC and InitialCredentials.
type SignInEvent interface {
	provider() Provider
}

// InitialOIDC is a completed authorization code flow. The provider's absolute expiry is copied as is.
type InitialOIDC struct {
	Tokens oauth2.TokenResponse
	User   oauth2.UserInfo
}

func (InitialOIDC) provider() Provider { return ProviderOIDC }

// InitialCredentials is a completed password grant. Expiry is computed from expires_in.
type InitialCredentials struct {
	Tokens oauth2.TokenResponse
	User   oauth2.UserInfo
}

func (InitialCredentials) provider() Provider { return ProviderCredentials }
