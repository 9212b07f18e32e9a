package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateLifetime = 10 * time.Minute

// StateSigner binds the GitHub redirect to the token id and request time it
// was started for. The state is an HS256 JWT, so it needs no server storage.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner returns nil for an empty secret; a nil signer issues an empty
// state and accepts any state on the callback.
func NewStateSigner(secret string, now func() time.Time) *StateSigner {
	if secret == "" {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &StateSigner{secret: []byte(secret), now: now}
}

func (s *StateSigner) Sign(tokenID, t string) (string, error) {
	if s == nil {
		return "", nil
	}
	now := s.now()
	claims := jwt.MapClaims{
		"tid": tokenID,
		"t":   t,
		"iat": now.Unix(),
		"exp": now.Add(stateLifetime).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return signed, nil
}

func (s *StateSigner) Verify(state, tokenID, t string) error {
	if s == nil {
		return nil
	}
	if state == "" {
		return fmt.Errorf("missing oauth state")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("invalid oauth state: %w", err)
	}

	if claims["tid"] != tokenID || claims["t"] != t {
		return fmt.Errorf("oauth state does not match request")
	}
	return nil
}
