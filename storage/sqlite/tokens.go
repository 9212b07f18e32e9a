package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/token"
)

const tokenColumns = `id, github_id, github_token, active, last_used_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Apply runs fn and its write inside one immediate transaction.
func (s *Store) Apply(ctx context.Context, id proof.TokenID, fn token.Transition) (*token.Token, token.Outcome, error) {
	var (
		result  *token.Token
		outcome token.Outcome
	)
	err := inTx(ctx, s.sqlDB, func(tx *sql.Tx) error {
		current, err := scanToken(tx.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id.String()))
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			current = nil
		} else if err != nil {
			return err
		}

		next, out, err := fn(current)
		if err != nil {
			return err
		}
		outcome = out
		if next == nil {
			result = current
			return nil
		}

		result, err = scanToken(tx.QueryRowContext(ctx, `
			INSERT INTO tokens (id, github_id, github_token, active, last_used_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				github_id    = excluded.github_id,
				github_token = excluded.github_token,
				active       = excluded.active,
				last_used_at = excluded.last_used_at
			RETURNING `+tokenColumns,
			id.String(), next.GitHubID, next.GitHubToken, next.Active, nullMillis(next.LastUsedAt), toMillis(next.CreatedAt),
		))
		return err
	})
	if err != nil {
		return nil, token.OutcomeNone, fmt.Errorf("sqlite apply token: %w", err)
	}
	return result, outcome, nil
}

func (s *Store) Get(ctx context.Context, id proof.TokenID) (*token.Token, error) {
	t, err := scanToken(s.sqlDB.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("sqlite get token: %w", err)
	}
	return t, nil
}

func (s *Store) GetActive(ctx context.Context, id proof.TokenID) (*token.Token, error) {
	t, err := scanToken(s.sqlDB.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM valid_tokens WHERE id = ?`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("sqlite get active token: %w", err)
	}
	return t, nil
}

func (s *Store) Touch(ctx context.Context, id proof.TokenID, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tokens SET last_used_at = ? WHERE id = ?`, toMillis(at), id.String())
	if err != nil {
		return fmt.Errorf("sqlite touch token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite touch token: %w", err)
	} else if n == 0 {
		return fmt.Errorf("sqlite touch token: %w", apperrors.ErrTokenNotFound)
	}
	return nil
}

func (s *Store) Deactivate(ctx context.Context, id proof.TokenID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `UPDATE tokens SET active = 0 WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("sqlite deactivate token: %w", err)
	}
	return nil
}

func (s *Store) DeactivateByGitHubID(ctx context.Context, githubID int64) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tokens SET active = 0 WHERE github_id = ?`, githubID)
	if err != nil {
		return 0, fmt.Errorf("sqlite deactivate tokens by github id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite deactivate tokens by github id: %w", err)
	}
	return n, nil
}

func scanToken(row rowScanner) (*token.Token, error) {
	var (
		t         token.Token
		rawID     string
		lastUsed  sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&rawID, &t.GitHubID, &t.GitHubToken, &t.Active, &lastUsed, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, err
	}

	id, err := proof.ParseTokenID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored token id %q: %w", rawID, err)
	}
	t.ID = id
	t.CreatedAt = fromMillis(createdAt)
	if lastUsed.Valid {
		t.LastUsedAt = fromMillis(lastUsed.Int64)
	}
	return &t, nil
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t), Valid: true}
}
