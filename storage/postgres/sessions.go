package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/sessions"
)

// Create inserts a session expiring sessionTTL after now.
func (s *Store) Create(ctx context.Context, ns sessions.NewSession, now time.Time) (*sessions.Session, error) {
	const op = "storage.postgres.Create"

	query := `
		INSERT INTO sessions (id, token_id, github_id, github_login, github_display_name, expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING expiry, created_at
	`

	out := sessions.Session{
		ID:                ns.ID,
		TokenID:           ns.TokenID,
		GitHubID:          ns.GitHubID,
		GitHubLogin:       ns.GitHubLogin,
		GitHubDisplayName: ns.GitHubDisplayName,
	}
	err := s.db.QueryRow(ctx, query,
		ns.ID, ns.TokenID.String(), ns.GitHubID, ns.GitHubLogin, ns.GitHubDisplayName,
		now.Add(s.sessionTTL), now,
	).Scan(&out.Expiry, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ForeignKeyViolation:
				return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTokenNotFound)
			case pgerrcode.UniqueViolation:
				return nil, fmt.Errorf("%s: %w", op, apperrors.ErrSessionExists)
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// GetValid joins against valid_tokens so a revoked token's sessions vanish with it.
func (s *Store) GetValid(ctx context.Context, sessionID string, now time.Time) (*sessions.Session, error) {
	const op = "storage.postgres.GetValid"

	query := `
		SELECT s.id, s.token_id, s.github_id, s.github_login, s.github_display_name, s.expiry, s.created_at
		FROM sessions s
		JOIN valid_tokens t ON t.id = s.token_id
		WHERE s.id = $1 AND s.expiry > $2
	`

	var (
		out     sessions.Session
		tokenID string
	)
	err := s.db.QueryRow(ctx, query, sessionID, now).Scan(
		&out.ID, &tokenID, &out.GitHubID, &out.GitHubLogin, &out.GitHubDisplayName, &out.Expiry, &out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out.TokenID, err = proof.ParseTokenID(tokenID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpired"

	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expiry <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}
