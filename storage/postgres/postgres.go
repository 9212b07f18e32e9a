// Package postgres stores tokens and sessions in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/jrsteele09/go-keygrant/token"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	_ token.Repo    = (*Store)(nil)
	_ sessions.Repo = (*Store)(nil)
)

// Store implements token.Repo and sessions.Repo over one connection pool.
type Store struct {
	db         *pgxpool.Pool
	sessionTTL time.Duration
}

// New connects to dbURL, applies the embedded migrations and returns a store
// that gives new sessions sessionTTL to live.
func New(ctx context.Context, dbURL string, sessionTTL time.Duration) (*Store, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sessionTTL <= 0 {
		sessionTTL = sessions.DefaultTTL
	}
	return &Store{db: db, sessionTTL: sessionTTL}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// migrate applies each embedded file once, tracked in schema_migrations.
func migrate(ctx context.Context, db *pgxpool.Pool) error {
	const op = "storage.postgres.migrate"

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("%s: read %s: %w", op, name, err)
		}

		err = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			_, err = tx.Exec(ctx, string(body))
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: apply %s: %w", op, name, err)
		}
		log.Debug().Str("migration", name).Msg("postgres migration checked")
	}
	return nil
}
