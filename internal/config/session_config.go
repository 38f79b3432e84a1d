package config

import "time"

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
	StoreCookie StoreKind = "cookie"
)

type SessionConfig interface {
	GetRefreshBuffer() time.Duration
	GetDefaultAccessTokenLifetime() time.Duration
	GetRefreshTimeout() time.Duration
	GetRevocationTimeout() time.Duration
	GetSessionMaxAge() time.Duration
	GetSessionStore() StoreKind
	GetSessionSecret() string
	GetSessionCookieName() string
	GetRedisAddr() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshBuffer is how long before expiry an access token is refreshed
func (Session) GetRefreshBuffer() time.Duration {
	return GetEnvDuration("TOKEN_REFRESH_BUFFER", 60*time.Second)
}

// GetDefaultAccessTokenLifetime applies when the provider does not report expires_in
func (Session) GetDefaultAccessTokenLifetime() time.Duration {
	return GetEnvDuration("TOKEN_DEFAULT_LIFETIME", 30*time.Minute)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetEnvDuration("TOKEN_REFRESH_TIMEOUT", 10*time.Second)
}

func (Session) GetRevocationTimeout() time.Duration {
	return GetEnvDuration("TOKEN_REVOCATION_TIMEOUT", 5*time.Second)
}

func (Session) GetSessionMaxAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour) // 30 days
}

func (Session) GetSessionStore() StoreKind {
	switch kind := StoreKind(GetEnv("SESSION_STORE", string(StoreMemory))); kind {
	case StoreRedis, StoreCookie:
		return kind
	default:
		return StoreMemory
	}
}

// GetSessionSecret keys the sealed session cookie (NEXTAUTH_SECRET in the old frontend)
func (Session) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", GetEnv("NEXTAUTH_SECRET", ""))
}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "hireai.session-token")
}

func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}
