package server

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("GET "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallbackOIDC, ChainMiddleware(s.OIDCCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallbackOIDC, ChainMiddleware(s.OIDCCallbackHandler(), s.APIMiddleware()...)) // For form_post response mode
	s.RegisterRouteHandler("POST "+RouteCallbackCredentials, ChainMiddleware(s.CredentialsCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.APIMiddleware()...))

	// Method-specific patterns answer OPTIONS with 405, so preflights get their own routes
	for _, route := range []string{RouteSignIn, RouteCallbackOIDC, RouteCallbackCredentials, RouteSession, RouteSignOut} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(PreflightHandler, s.APIMiddleware()...))
	}

	// Backend API (requires a session with a usable access token)
	s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware(s.RequireSession())...))

	// SYSTEM
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}
