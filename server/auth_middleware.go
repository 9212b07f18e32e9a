package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the authenticated *sessions.Session
	ContextKeySession ContextKey = "session"
	// ContextKeyCorrelationID stores the request correlation id
	ContextKeyCorrelationID ContextKey = "correlation_id"
)

// RequireSession resolves the session header and rejects the request with
// 401 bad_session unless it names a live session on an active token.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(api.HeaderSessionID)
		if sessionID == "" {
			sessionID = r.Header.Get(api.HeaderLegacySessionID)
		}

		session, err := s.auth.Authenticate(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeySession, session)
		next(w, r.WithContext(ctx))
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return session, ok && session != nil
}
