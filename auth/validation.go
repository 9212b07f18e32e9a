package auth

import (
	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
)

// parseTokenID turns the wire identifier into a TokenID or a malformed-input rejection.
func parseTokenID(raw string) (proof.TokenID, error) {
	id, err := proof.ParseTokenID(raw)
	if err != nil {
		return proof.TokenID{}, Reject(KindMalformed, MsgMalformedToken, err)
	}
	return id, nil
}

// checkProof runs the replay window, the signature check and, when enabled,
// the seen-proof cache, in that order. Every failure yields the same
// caller-visible rejection.
func (s *Service) checkProof(id proof.TokenID, signature, scope string, requestTime float64) error {
	if !s.window.InWindow(requestTime) {
		return invalidProof(apperrors.ErrRequestTime)
	}

	operand := proof.FormatRequestTime(requestTime)
	if !proof.VerifyID(id, signature, scope, operand) {
		return invalidProof(apperrors.ErrInvalidProof)
	}

	if s.seen != nil && !s.seen.FirstUse(id, scope, operand) {
		return invalidProof(apperrors.ErrProofReplayed)
	}
	return nil
}
