package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/rs/zerolog/log"
)

// RevokeToken deactivates one token. Sessions derived from it stop
// authenticating immediately. Revoking an unknown or already revoked token is
// not an error.
func (s *Service) RevokeToken(ctx context.Context, id proof.TokenID) error {
	if err := s.repos.Tokens.Deactivate(ctx, id); err != nil {
		return apperrors.Wrapf(err, "[RevokeToken]")
	}
	log.Ctx(ctx).Info().Str("token_id", id.String()).Msg("token revoked")
	return nil
}

// RevokeIdentity deactivates every token bound to githubID and returns how
// many rows it touched.
func (s *Service) RevokeIdentity(ctx context.Context, githubID int64) (int64, error) {
	n, err := s.repos.Tokens.DeactivateByGitHubID(ctx, githubID)
	if err != nil {
		return 0, apperrors.Wrapf(err, "[RevokeIdentity]")
	}
	log.Ctx(ctx).Info().Int64("github_id", githubID).Int64("tokens", n).Msg("identity revoked")
	return n, nil
}
