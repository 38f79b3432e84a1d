package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	baseURLVar        = "BASE_URL"
	apiUpstreamURLVar = "API_URL"
	signInPageVar     = "SIGNIN_PAGE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "HireAI Gateway")
}

// GetBaseURL returns the public URL of the gateway (e.g., "https://app.hireai.dev")
// Used to build the OIDC callback and post-logout redirect URLs.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:3000"), "/")
}

// GetAPIUpstreamURL is the backend API that authenticated /api/v1 calls are proxied to
func (EnvVars) GetAPIUpstreamURL() string {
	return GetEnv(apiUpstreamURLVar, "http://localhost:8080")
}

// GetSignInPage is where users are sent when a session needs re-authentication
func (EnvVars) GetSignInPage() string {
	return GetEnv(signInPageVar, "/auth/signin")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("90s") or a plain number of seconds.
// Unparseable values fall back to the default.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}
