package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/jrsteele09/go-keygrant/internal/config"
	fakesessionrepo "github.com/jrsteele09/go-keygrant/sessions/repofakes"
	"github.com/jrsteele09/go-keygrant/storage/postgres"
	"github.com/jrsteele09/go-keygrant/storage/sqlite"
	tokenfakerepo "github.com/jrsteele09/go-keygrant/token/repofake"
	"github.com/rs/zerolog/log"
)

// store is the selected backend with its lifecycle hooks.
type store struct {
	repos   auth.Repos
	ping    func(ctx context.Context) error
	closers []func()
}

func (s *store) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

func (s *store) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStore(ctx context.Context, c config.Config) (*store, error) {
	ttl := c.GetSessionTTL()

	switch c.GetStorageDriver() {
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, c.GetDatabaseURL(), ttl)
		if err != nil {
			return nil, fmt.Errorf("postgres.New: %w", err)
		}
		log.Info().Msg("Using postgres storage")
		return &store{
			repos:   auth.Repos{Tokens: pg, Sessions: pg},
			ping:    pg.Ping,
			closers: []func(){pg.Close},
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(c.GetSQLitePath(), ttl)
		if err != nil {
			return nil, fmt.Errorf("sqlite.Open: %w", err)
		}
		log.Info().Str("path", c.GetSQLitePath()).Msg("Using sqlite storage")
		return &store{
			repos: auth.Repos{Tokens: db, Sessions: db},
			ping:  db.Ping,
			closers: []func(){func() {
				if err := db.Close(); err != nil {
					log.Error().Err(err).Msg("closing sqlite")
				}
			}},
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage; tokens and sessions are lost on restart")
		tokens := tokenfakerepo.NewFakeTokensRepo()
		return &store{
			repos: auth.Repos{Tokens: tokens, Sessions: fakesessionrepo.NewFakeSessionRepo(tokens, ttl)},
			ping:  func(context.Context) error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", c.GetStorageDriver())
}
