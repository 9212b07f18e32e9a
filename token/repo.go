package token

import (
	"context"
	"time"

	"github.com/jrsteele09/go-keygrant/proof"
)

// Repo persists tokens. Lookups that find nothing return an error wrapping
// errors.ErrTokenNotFound.
type Repo interface {
	// Apply loads the token (nil when absent), runs fn and stores its result
	// atomically with respect to other writers of the same id.
	Apply(ctx context.Context, id proof.TokenID, fn Transition) (*Token, Outcome, error)

	// Get returns a token in any state.
	Get(ctx context.Context, id proof.TokenID) (*Token, error)

	// GetActive returns the token only while it is active.
	GetActive(ctx context.Context, id proof.TokenID) (*Token, error)

	// Touch records a successful session grant.
	Touch(ctx context.Context, id proof.TokenID, at time.Time) error

	// Deactivate marks one token inactive. Absent or already inactive tokens are not an error.
	Deactivate(ctx context.Context, id proof.TokenID) error

	// DeactivateByGitHubID marks every token bound to the identity inactive and
	// returns how many rows it matched.
	DeactivateByGitHubID(ctx context.Context, githubID int64) (int64, error)
}
