package proof

import (
	"crypto/ed25519"
	"encoding/hex"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
)

// TokenIDSize is the byte length of a token id, which is an Ed25519 public key.
const TokenIDSize = ed25519.PublicKeySize

// TokenID is a self-certifying identifier: the raw Ed25519 public key that the
// client holds the private half of. It doubles as the primary key of a token.
type TokenID [TokenIDSize]byte

// ParseTokenID decodes a hex token id. Anything that does not decode to exactly
// 32 bytes is rejected.
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID
	if len(s) != hex.EncodedLen(TokenIDSize) {
		return id, apperrors.ErrMalformedTokenID
	}
	n, err := hex.Decode(id[:], []byte(s))
	if err != nil || n != TokenIDSize {
		return TokenID{}, apperrors.ErrMalformedTokenID
	}
	return id, nil
}

// TokenIDFromPublicKey converts an Ed25519 public key into a TokenID.
func TokenIDFromPublicKey(pub ed25519.PublicKey) (TokenID, error) {
	var id TokenID
	if len(pub) != TokenIDSize {
		return id, apperrors.ErrMalformedTokenID
	}
	copy(id[:], pub)
	return id, nil
}

// String returns the lower-case hex form used on the wire and in storage.
func (id TokenID) String() string {
	return hex.EncodeToString(id[:])
}

// PublicKey returns the id as an Ed25519 public key.
func (id TokenID) PublicKey() ed25519.PublicKey {
	pub := make(ed25519.PublicKey, TokenIDSize)
	copy(pub, id[:])
	return pub
}

// IsZero reports whether the id is unset.
func (id TokenID) IsZero() bool {
	return id == TokenID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TokenID) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
