package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-keygrant/proof"
)

// DefaultTTL is how long a session lives when the store is not configured otherwise.
const DefaultTTL = 24 * time.Hour

// idBytes is the entropy of a session id (128 bits).
const idBytes = 16

// Session is a short-lived credential derived from a token. It snapshots the
// GitHub identity at grant time and is never mutated after creation.
type Session struct {
	ID                string        // 32 hex chars
	TokenID           proof.TokenID // owning token
	GitHubID          int64
	GitHubLogin       string
	GitHubDisplayName string
	Expiry            time.Time // assigned by the store
	CreatedAt         time.Time
}

// NewSession is what a caller supplies when creating a session; the store
// fills in Expiry and CreatedAt.
type NewSession struct {
	ID                string
	TokenID           proof.TokenID
	GitHubID          int64
	GitHubLogin       string
	GitHubDisplayName string
}

// Expired reports whether now is at or after the session's expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expiry)
}

// NewID returns a fresh random session id.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// WellFormedID reports whether id looks like a session id. Callers use it to
// skip store lookups for obviously bogus input.
func WellFormedID(id string) bool {
	if len(id) != hex.EncodedLen(idBytes) {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
