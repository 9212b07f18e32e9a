package server

import "github.com/jrsteele09/go-keygrant/api"

func (s *Server) initRoutes() {
	// Token grant: redirect to GitHub, then bind the key on the callback
	s.RegisterRouteFunc("GET "+api.RouteGHLogin, ChainMiddleware(s.GHLoginHandler(), s.APIMiddleware()...))

	// Session grant
	s.RegisterRouteFunc("POST "+api.RouteMkSession, ChainMiddleware(s.MkSessionHandler(), s.APIMiddleware()...))

	// Session routes
	s.RegisterRouteFunc("POST "+api.RouteRevokeTokenByID, ChainMiddleware(s.RevokeTokenByIDHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteFunc("POST "+api.RouteRevokeTokenByGHID, ChainMiddleware(s.RevokeTokenByGHIDHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteFunc("GET "+api.RouteWhoAmI, ChainMiddleware(s.WhoAmIHandler(), s.APIMiddleware(s.RequireSession)...))

	// Preflight for the POST routes
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+api.RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))
}
