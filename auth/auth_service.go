package auth

import (
	"time"

	"github.com/jrsteele09/go-keygrant/identity"
	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/jrsteele09/go-keygrant/token"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Tokens   token.Repo    // Repository for proof-of-possession tokens
	Sessions sessions.Repo // Repository for granted sessions
}

// Service runs the token grant, session grant, session check and revocation flows.
type Service struct {
	repos             Repos
	provider          identity.Provider
	allowList         identity.AllowList
	window            proof.Window
	seen              *proof.SeenCache // nil unless replay caching is enabled
	allowReactivation bool
	nowTime           func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing). It also
// drives the replay window unless WithTolerance is applied after it.
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
		s.window = proof.NewWindow(nowFunc, s.window.Tolerance())
	}
}

// WithTolerance overrides the replay window width.
func WithTolerance(tolerance time.Duration) ServiceOption {
	return func(s *Service) {
		s.window = proof.NewWindow(s.nowTime, tolerance)
	}
}

// WithAllowList restricts which logins may bind tokens.
func WithAllowList(allow identity.AllowList) ServiceOption {
	return func(s *Service) {
		s.allowList = allow
	}
}

// WithSeenCache rejects a second use of the same proof inside the window.
func WithSeenCache(cache *proof.SeenCache) ServiceOption {
	return func(s *Service) {
		s.seen = cache
	}
}

// WithReactivation controls whether re-running the token grant revives a
// revoked token. Enabled by default.
func WithReactivation(allow bool) ServiceOption {
	return func(s *Service) {
		s.allowReactivation = allow
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(repos Repos, provider identity.Provider, options ...ServiceOption) (*Service, error) {
	if repos.Tokens == nil {
		return nil, apperrors.New("[NewService] Tokens repo is required")
	}
	if repos.Sessions == nil {
		return nil, apperrors.New("[NewService] Sessions repo is required")
	}
	if provider == nil {
		return nil, apperrors.New("[NewService] identity provider is required")
	}

	s := &Service{
		repos:             repos,
		provider:          provider,
		window:            proof.NewWindow(time.Now, proof.DefaultTolerance),
		allowReactivation: true,
		nowTime:           time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Provider exposes the identity provider, for building login redirects.
func (s *Service) Provider() identity.Provider {
	return s.provider
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.nowTime()
}
