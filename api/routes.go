// Package api holds the wire contract shared by the keygrant server and its
// clients: route paths, header names and JSON bodies.
package api

// Route path constants
const (
	// Token grant: GitHub web flow start and callback share one path
	RouteGHLogin = "/ghlogin"

	// Session grant
	RouteMkSession = "/mksession"

	// Revocation (session required)
	RouteRevokeTokenByID   = "/revoke_token_by_id"
	RouteRevokeTokenByGHID = "/revoke_token_by_ghid"

	// Session info (session required)
	RouteWhoAmI = "/whoami"

	RouteHealthz = "/healthz"
)

// Header names
const (
	HeaderSessionID = "X-Session-Id"
	// Accepted on requests only; HeaderSessionID wins when both are sent.
	HeaderLegacySessionID = "X-BBCP-Session-Id"
	HeaderCorrelationID   = "X-Correlation-ID"
)
