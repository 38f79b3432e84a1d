package config

import (
	"strings"
	"time"
)

type OIDCConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetCallbackURL() string
	GetPostLogoutRedirectURL() string
	GetIDPTimeout() time.Duration
}

type OIDC struct {
	EnvVars
}

var _ OIDCConfig = OIDC{}

// GetIssuerURL is the Keycloak realm issuer, e.g. https://sso.example.com/realms/hireai
func (OIDC) GetIssuerURL() string {
	return GetEnv("KEYCLOAK_ISSUER", "http://localhost:8081/realms/hireai")
}

func (OIDC) GetClientID() string {
	return GetEnv("KEYCLOAK_CLIENT_ID", "hireai-frontend")
}

func (OIDC) GetClientSecret() string {
	return GetEnv("KEYCLOAK_CLIENT_SECRET", "")
}

func (OIDC) GetScopes() []string {
	return strings.Fields(GetEnv("KEYCLOAK_SCOPES", "openid profile email offline_access"))
}

func (o OIDC) GetCallbackURL() string {
	return o.GetBaseURL() + "/api/auth/callback/keycloak"
}

func (o OIDC) GetPostLogoutRedirectURL() string {
	return o.GetBaseURL() + o.GetSignInPage()
}

// GetIDPTimeout bounds every HTTP exchange with the identity provider
func (OIDC) GetIDPTimeout() time.Duration {
	return GetEnvDuration("IDP_TIMEOUT", 10*time.Second)
}
