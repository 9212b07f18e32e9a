package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/sessions"
)

// Authenticate resolves a session id to a live session. Unknown, expired and
// revoked sessions all produce the same KindSession rejection.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if !sessions.WellFormedID(sessionID) {
		return nil, badSession(nil)
	}

	sess, err := s.repos.Sessions.GetValid(ctx, sessionID, s.nowTime())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, badSession(err)
		}
		return nil, apperrors.Wrapf(err, "[Authenticate] session lookup")
	}
	return sess, nil
}
