package config

type Config interface {
	EnvConfig
	CorsConfig
	OIDCConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetAPIUpstreamURL() string
	GetSignInPage() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OIDC
	Session
}

func New() Config {
	return mainConfig{}
}
