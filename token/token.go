package token

import (
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
)

// Token binds a client-held Ed25519 key to a GitHub identity. Tokens are never
// deleted, only deactivated.
type Token struct {
	ID          proof.TokenID `json:"id"`
	GitHubID    int64         `json:"githubId"`
	GitHubToken string        `json:"-"` // bearer credential, never returned to clients
	Active      bool          `json:"active"`
	LastUsedAt  time.Time     `json:"lastUsedAt"` // zero until the first session grant
	CreatedAt   time.Time     `json:"createdAt"`
}

// Binding is the external identity an init request attaches to a token.
type Binding struct {
	GitHubID    int64
	GitHubToken string
}

// Outcome names the state change a transition made.
type Outcome int

const (
	OutcomeNone        Outcome = iota
	OutcomeCreated             // absent -> active
	OutcomeRebound             // active -> active, binding replaced
	OutcomeReactivated         // inactive -> active
	OutcomeDeactivated         // active -> inactive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRebound:
		return "rebound"
	case OutcomeReactivated:
		return "reactivated"
	case OutcomeDeactivated:
		return "deactivated"
	default:
		return "none"
	}
}

// Transition computes the next state of a token from its current state, which
// is nil when no row exists. Repos run a transition and its write in one
// transaction. Returning an error aborts without writing.
type Transition func(current *Token) (next *Token, outcome Outcome, err error)

// Activate is the init-phase transition. It writes the binding and marks the
// token active. When allowReactivation is false a deactivated token stays
// deactivated and ErrTokenInactive is returned.
func Activate(id proof.TokenID, b Binding, now time.Time, allowReactivation bool) Transition {
	return func(current *Token) (*Token, Outcome, error) {
		if current == nil {
			return &Token{
				ID:          id,
				GitHubID:    b.GitHubID,
				GitHubToken: b.GitHubToken,
				Active:      true,
				CreatedAt:   now,
			}, OutcomeCreated, nil
		}

		next := *current
		next.GitHubID = b.GitHubID
		next.GitHubToken = b.GitHubToken

		if !current.Active {
			if !allowReactivation {
				return nil, OutcomeNone, apperrors.ErrTokenInactive
			}
			next.Active = true
			return &next, OutcomeReactivated, nil
		}
		return &next, OutcomeRebound, nil
	}
}
