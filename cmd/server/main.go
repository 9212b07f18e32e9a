package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/jrsteele09/go-keygrant/identity"
	"github.com/jrsteele09/go-keygrant/identity/github"
	"github.com/jrsteele09/go-keygrant/internal/config"
	"github.com/jrsteele09/go-keygrant/internal/logging"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/server"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.MustLoad("")
	logging.Init(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.close()

	authService, err := newAuthService(c, st)
	if err != nil {
		return err
	}

	handler, err := server.New(c, authService, server.WithHealthCheck(st.ping))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	go sessions.Sweep(ctx, st.repos.Sessions, c.GetSessionGCInterval(), time.Now)

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(srv)
}

func newAuthService(c config.Config, st *store) (*auth.Service, error) {
	provider, err := github.New(github.Options{
		ClientID:      c.GetGitHubClientID(),
		ClientSecret:  c.GetGitHubClientSecret(),
		EnterpriseURL: c.GetGitHubEnterpriseURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("github.New: %w", err)
	}

	opts := []auth.ServiceOption{
		auth.WithTolerance(c.GetReplayWindow()),
		auth.WithAllowList(identity.NewAllowList(c.GetGitHubAllowList()...)),
		auth.WithReactivation(c.GetAllowReactivation()),
	}
	if c.GetReplayCacheEnabled() {
		seen, err := proof.NewSeenCache(c.GetReplayWindow(), c.GetReplayCacheSize())
		if err != nil {
			return nil, fmt.Errorf("proof.NewSeenCache: %w", err)
		}
		st.onClose(seen.Close)
		opts = append(opts, auth.WithSeenCache(seen))
	}

	return auth.NewService(st.repos, provider, opts...)
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
