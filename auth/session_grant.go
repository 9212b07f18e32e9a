package auth

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/rs/zerolog/log"
)

// GrantRequest is the body of a session grant: a fresh proof over
// "grant_session:<t>".
type GrantRequest struct {
	RequestTime float64 // Unix milliseconds
	TokenID     string
	Proof       string
}

type GrantResult struct {
	SessionID string
	Expiry    time.Time
	Session   *sessions.Session
}

// GrantSession exchanges a proof of key possession for a new session. The
// stored GitHub credential is re-checked on every grant so the session carries
// the account's current login and display name.
func (s *Service) GrantSession(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	logger := log.Ctx(ctx)

	id, err := parseTokenID(req.TokenID)
	if err != nil {
		return nil, err
	}

	if err := s.checkProof(id, req.Proof, proof.ScopeGrantSession, req.RequestTime); err != nil {
		logger.Info().Err(err).Str("token_id", id.String()).Msg("grant proof rejected")
		return nil, err
	}

	tok, err := s.repos.Tokens.GetActive(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, Reject(KindInvalidToken, MsgInvalidToken, err)
		}
		return nil, apperrors.Wrapf(err, "[GrantSession] token lookup")
	}

	who, err := s.provider.Resolve(ctx, tok.GitHubToken)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[GrantSession] resolve")
	}

	sessionID, err := sessions.NewID()
	if err != nil {
		return nil, err
	}

	now := s.nowTime()
	if err := s.repos.Tokens.Touch(ctx, id, now); err != nil {
		return nil, apperrors.Wrapf(err, "[GrantSession] touch")
	}

	sess, err := s.repos.Sessions.Create(ctx, sessions.NewSession{
		ID:                sessionID,
		TokenID:           id,
		GitHubID:          who.ID,
		GitHubLogin:       who.Login,
		GitHubDisplayName: who.DisplayName,
	}, now)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[GrantSession] create session")
	}

	logger.Info().
		Str("token_id", id.String()).
		Str("github_login", who.Login).
		Time("expiry", sess.Expiry).
		Msg("session granted")

	return &GrantResult{SessionID: sess.ID, Expiry: sess.Expiry, Session: sess}, nil
}
