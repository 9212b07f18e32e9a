package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/jrsteele09/go-keygrant/internal/config"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	auth           *auth.Service
	state          *StateSigner
	requestTimeout time.Duration
	healthCheck    HealthCheck
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithHealthCheck makes /healthz report 503 when check fails.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *Server) {
		s.healthCheck = check
	}
}

// WithStateSigner overrides the signer built from STATE_SECRET.
func WithStateSigner(signer *StateSigner) Option {
	return func(s *Server) {
		s.state = signer
	}
}

func New(cfg config.Config, authService *auth.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}

	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		auth:           authService,
		state:          NewStateSigner(cfg.GetStateSecret(), authService.Now),
		requestTimeout: cfg.GetRequestTimeout(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
