// Package proof implements proof-of-possession checks for self-certifying
// token ids: Ed25519 signatures over a scoped payload, and the request-time
// window that bounds how long a captured proof stays usable.
package proof

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
)

// Proof scopes. The signed payload is scope + ":" + operand.
const (
	ScopeInit         = "init"
	ScopeGrantSession = "grant_session"
)

var sigEncoding = base64.RawURLEncoding

// Message builds the exact bytes a proof signs.
func Message(scope, operand string) []byte {
	return []byte(scope + ":" + operand)
}

// Sign produces a URL-safe, unpadded base64 signature over scope:operand.
func Sign(priv ed25519.PrivateKey, scope, operand string) string {
	return sigEncoding.EncodeToString(ed25519.Sign(priv, Message(scope, operand)))
}

// Verify reports whether signature is a valid Ed25519 signature by the key
// named by identifier over scope:operand. It fails closed on any decoding
// problem and never panics.
func Verify(identifier, signature, scope, operand string) bool {
	id, err := ParseTokenID(identifier)
	if err != nil {
		return false
	}
	return VerifyID(id, signature, scope, operand)
}

// VerifyID is Verify for an already parsed id.
func VerifyID(id TokenID, signature, scope, operand string) bool {
	sig, err := sigEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(id.PublicKey(), Message(scope, operand), sig)
}

// FormatRequestTime renders a request time the way clients stringify it
// before signing: integral values carry no fractional part.
func FormatRequestTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
