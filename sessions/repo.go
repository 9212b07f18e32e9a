package sessions

import (
	"context"
	"time"
)

// Repo defines session storage. The store owns the TTL policy: Create assigns
// the expiry. Lookups that find nothing return an error wrapping
// errors.ErrSessionNotFound.
type Repo interface {
	// Create inserts a session. The owning token must exist
	// (errors.ErrTokenNotFound otherwise) and the id must be unused
	// (errors.ErrSessionExists).
	Create(ctx context.Context, s NewSession, now time.Time) (*Session, error)

	// GetValid returns the session only if now is before its expiry and its
	// owning token is active. Unknown, expired and revoked are indistinguishable.
	GetValid(ctx context.Context, sessionID string, now time.Time) (*Session, error)

	// DeleteExpired removes sessions whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
