package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/token"
	"github.com/rs/zerolog/log"
)

// InitRequest is the callback half of the GitHub login: the client's proof
// over "init:<t>" plus the web-flow code.
type InitRequest struct {
	TokenID     string
	Proof       string
	RequestTime float64 // Unix milliseconds
	Code        string
}

type InitResult struct {
	Token   *token.Token
	Outcome token.Outcome
}

// InitToken binds the key named by req.TokenID to the GitHub account that
// authorised req.Code. Re-running it for an existing token rebinds it, and
// for a revoked token reactivates it unless reactivation is disabled.
func (s *Service) InitToken(ctx context.Context, req InitRequest) (*InitResult, error) {
	logger := log.Ctx(ctx)

	id, err := parseTokenID(req.TokenID)
	if err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, Reject(KindMalformed, MsgMissingArgument, nil)
	}

	if err := s.checkProof(id, req.Proof, proof.ScopeInit, req.RequestTime); err != nil {
		logger.Info().Err(err).Str("token_id", id.String()).Msg("init proof rejected")
		return nil, err
	}

	credential, err := s.provider.Exchange(ctx, req.Code)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[InitToken] exchange")
	}

	who, err := s.provider.Resolve(ctx, credential)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[InitToken] resolve")
	}

	if !s.allowList.Allows(who.Login) {
		logger.Warn().Str("github_login", who.Login).Str("token_id", id.String()).Msg("login not on allow list")
		return nil, Reject(KindForbidden, MsgUserNotAllowed, apperrors.ErrIdentityNotAllow)
	}

	binding := token.Binding{GitHubID: who.ID, GitHubToken: credential}
	tok, outcome, err := s.repos.Tokens.Apply(ctx, id, token.Activate(id, binding, s.nowTime(), s.allowReactivation))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTokenInactive) {
			return nil, Reject(KindForbidden, MsgTokenRevoked, err)
		}
		return nil, apperrors.Wrapf(err, "[InitToken] store")
	}

	event := logger.Info()
	if outcome == token.OutcomeReactivated {
		event = logger.Warn()
	}
	event.Str("token_id", id.String()).
		Int64("github_id", who.ID).
		Str("github_login", who.Login).
		Stringer("outcome", outcome).
		Msg("token bound")

	return &InitResult{Token: tok, Outcome: outcome}, nil
}
