package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes (paths kept compatible with the NextAuth client)
	RouteSignIn              = "/api/auth/signin"
	RouteCallbackOIDC        = "/api/auth/callback/keycloak"
	RouteCallbackCredentials = "/api/auth/callback/credentials"
	RouteSession             = "/api/auth/session"
	RouteSignOut             = "/api/auth/signout"

	// Backend API, proxied with the session's bearer token
	RouteAPIProxy = "/api/v1/"

	// System Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
