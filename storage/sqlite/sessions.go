package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/sessions"
)

// Create inserts a session expiring sessionTTL after now.
func (s *Store) Create(ctx context.Context, ns sessions.NewSession, now time.Time) (*sessions.Session, error) {
	expiry := now.Add(s.sessionTTL)

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO sessions (id, token_id, github_id, github_login, github_display_name, expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ns.ID, ns.TokenID.String(), ns.GitHubID, ns.GitHubLogin, ns.GitHubDisplayName, toMillis(expiry), toMillis(now),
	)
	switch {
	case err == nil:
	case isForeignKeyError(err):
		return nil, fmt.Errorf("sqlite create session: %w", apperrors.ErrTokenNotFound)
	case isUniqueError(err):
		return nil, fmt.Errorf("sqlite create session: %w", apperrors.ErrSessionExists)
	default:
		return nil, fmt.Errorf("sqlite create session: %w", err)
	}

	return &sessions.Session{
		ID:                ns.ID,
		TokenID:           ns.TokenID,
		GitHubID:          ns.GitHubID,
		GitHubLogin:       ns.GitHubLogin,
		GitHubDisplayName: ns.GitHubDisplayName,
		Expiry:            fromMillis(toMillis(expiry)),
		CreatedAt:         fromMillis(toMillis(now)),
	}, nil
}

func (s *Store) GetValid(ctx context.Context, sessionID string, now time.Time) (*sessions.Session, error) {
	var (
		out       sessions.Session
		tokenID   string
		expiry    int64
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT s.id, s.token_id, s.github_id, s.github_login, s.github_display_name, s.expiry, s.created_at
		FROM sessions s
		JOIN valid_tokens t ON t.id = s.token_id
		WHERE s.id = ? AND s.expiry > ?`,
		sessionID, toMillis(now),
	).Scan(&out.ID, &tokenID, &out.GitHubID, &out.GitHubLogin, &out.GitHubDisplayName, &expiry, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite get session: %w", apperrors.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("sqlite get session: %w", err)
	}

	if out.TokenID, err = proof.ParseTokenID(tokenID); err != nil {
		return nil, fmt.Errorf("sqlite get session: %w", err)
	}
	out.Expiry = fromMillis(expiry)
	out.CreatedAt = fromMillis(createdAt)
	return &out, nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE expiry <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("sqlite delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite delete expired sessions: %w", err)
	}
	return n, nil
}
