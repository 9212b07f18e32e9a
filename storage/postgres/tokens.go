package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/token"
)

const tokenColumns = `id, github_id, github_token, active, last_used_at, created_at`

// Apply runs fn against the locked current row and writes its result in the
// same transaction. An absent row is first claimed with a placeholder insert,
// so concurrent first activations serialise on the row lock instead of both
// seeing no row. The placeholder is inactive and vanishes on rollback.
func (s *Store) Apply(ctx context.Context, id proof.TokenID, fn token.Transition) (*token.Token, token.Outcome, error) {
	const op = "storage.postgres.Apply"

	var (
		result  *token.Token
		outcome token.Outcome
	)
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO tokens (id, github_id, github_token, active)
			VALUES ($1, 0, '', FALSE)
			ON CONFLICT (id) DO NOTHING`, id.String())
		if err != nil {
			return err
		}
		claimed := tag.RowsAffected() == 1

		current, err := scanToken(tx.QueryRow(ctx,
			`SELECT `+tokenColumns+` FROM tokens WHERE id = $1 FOR UPDATE`, id.String()))
		if err != nil {
			return err
		}
		if claimed {
			current = nil
		}

		next, out, err := fn(current)
		if err != nil {
			return err
		}
		outcome = out
		if next == nil {
			if claimed {
				// nothing to write; drop the placeholder
				_, err = tx.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id.String())
			}
			result = current
			return err
		}

		result, err = scanToken(tx.QueryRow(ctx, `
			UPDATE tokens SET
				github_id    = $2,
				github_token = $3,
				active       = $4,
				last_used_at = $5,
				created_at   = $6
			WHERE id = $1
			RETURNING `+tokenColumns,
			id.String(), next.GitHubID, next.GitHubToken, next.Active, nullTime(next.LastUsedAt), next.CreatedAt,
		))
		return err
	})
	if err != nil {
		return nil, token.OutcomeNone, fmt.Errorf("%s: %w", op, err)
	}
	return result, outcome, nil
}

func (s *Store) Get(ctx context.Context, id proof.TokenID) (*token.Token, error) {
	const op = "storage.postgres.Get"

	t, err := scanToken(s.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *Store) GetActive(ctx context.Context, id proof.TokenID) (*token.Token, error) {
	const op = "storage.postgres.GetActive"

	t, err := scanToken(s.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM valid_tokens WHERE id = $1`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (s *Store) Touch(ctx context.Context, id proof.TokenID, at time.Time) error {
	const op = "storage.postgres.Touch"

	tag, err := s.db.Exec(ctx, `UPDATE tokens SET last_used_at = $2 WHERE id = $1`, id.String(), at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTokenNotFound)
	}
	return nil
}

func (s *Store) Deactivate(ctx context.Context, id proof.TokenID) error {
	const op = "storage.postgres.Deactivate"

	if _, err := s.db.Exec(ctx, `UPDATE tokens SET active = FALSE WHERE id = $1`, id.String()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) DeactivateByGitHubID(ctx context.Context, githubID int64) (int64, error) {
	const op = "storage.postgres.DeactivateByGitHubID"

	tag, err := s.db.Exec(ctx, `UPDATE tokens SET active = FALSE WHERE github_id = $1`, githubID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*token.Token, error) {
	var (
		t        token.Token
		rawID    string
		lastUsed *time.Time
	)
	err := row.Scan(&rawID, &t.GitHubID, &t.GitHubToken, &t.Active, &lastUsed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, err
	}

	if t.ID, err = proof.ParseTokenID(rawID); err != nil {
		return nil, fmt.Errorf("stored token id %q: %w", rawID, err)
	}
	if lastUsed != nil {
		t.LastUsedAt = *lastUsed
	}
	return &t, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
