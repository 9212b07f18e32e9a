package tokenfakerepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

type FakeTokenRepo struct {
	tokens map[proof.TokenID]*token.Token
	lock   sync.RWMutex
}

func NewFakeTokensRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		tokens: make(map[proof.TokenID]*token.Token),
	}
}

func (tr *FakeTokenRepo) Apply(_ context.Context, id proof.TokenID, fn token.Transition) (*token.Token, token.Outcome, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	var current *token.Token
	if t, ok := tr.tokens[id]; ok {
		c := *t
		current = &c
	}

	next, outcome, err := fn(current)
	if err != nil {
		return nil, token.OutcomeNone, err
	}
	if next == nil {
		return current, outcome, nil
	}

	stored := *next
	stored.ID = id
	tr.tokens[id] = &stored

	out := stored
	return &out, outcome, nil
}

func (tr *FakeTokenRepo) Get(_ context.Context, id proof.TokenID) (*token.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	t, ok := tr.tokens[id]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	out := *t
	return &out, nil
}

func (tr *FakeTokenRepo) GetActive(ctx context.Context, id proof.TokenID) (*token.Token, error) {
	t, err := tr.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, apperrors.ErrTokenNotFound
	}
	return t, nil
}

func (tr *FakeTokenRepo) Touch(_ context.Context, id proof.TokenID, at time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	t, ok := tr.tokens[id]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.LastUsedAt = at
	return nil
}

func (tr *FakeTokenRepo) Deactivate(_ context.Context, id proof.TokenID) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if t, ok := tr.tokens[id]; ok {
		t.Active = false
	}
	return nil
}

func (tr *FakeTokenRepo) DeactivateByGitHubID(_ context.Context, githubID int64) (int64, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	var n int64
	for _, t := range tr.tokens {
		if t.GitHubID == githubID {
			t.Active = false
			n++
		}
	}
	return n, nil
}
