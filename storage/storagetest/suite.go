// Package storagetest holds the behaviour every token and session store must
// share. Backend tests call Run with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/jrsteele09/go-keygrant/token"
	"github.com/stretchr/testify/require"
)

// SessionTTL is the lifetime stores under test must be configured with.
const SessionTTL = time.Hour

// Stores is one backend's pair of repositories sharing the same data.
type Stores struct {
	Tokens   token.Repo
	Sessions sessions.Repo
}

// Factory returns a fresh empty backend configured with SessionTTL.
type Factory func(t *testing.T) Stores

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func tokenID(b byte) proof.TokenID {
	var id proof.TokenID
	for i := range id {
		id[i] = b
	}
	return id
}

func activate(t *testing.T, repo token.Repo, id proof.TokenID, githubID int64, now time.Time) (*token.Token, token.Outcome) {
	t.Helper()
	tok, outcome, err := repo.Apply(context.Background(), id,
		token.Activate(id, token.Binding{GitHubID: githubID, GitHubToken: "gho_" + id.String()[:6]}, now, true))
	require.NoError(t, err)
	return tok, outcome
}

// Run exercises the full repository contract.
func Run(t *testing.T, newStores Factory) {
	t.Run("token lifecycle", func(t *testing.T) { testTokenLifecycle(t, newStores(t)) })
	t.Run("token transition error writes nothing", func(t *testing.T) { testTransitionError(t, newStores(t)) })
	t.Run("deactivate by github id", func(t *testing.T) { testDeactivateByGitHubID(t, newStores(t)) })
	t.Run("session lifecycle", func(t *testing.T) { testSessionLifecycle(t, newStores(t)) })
	t.Run("session requires token", func(t *testing.T) { testSessionRequiresToken(t, newStores(t)) })
	t.Run("session follows token state", func(t *testing.T) { testSessionFollowsToken(t, newStores(t)) })
	t.Run("delete expired", func(t *testing.T) { testDeleteExpired(t, newStores(t)) })
	t.Run("concurrent grants", func(t *testing.T) { testConcurrentCreate(t, newStores(t)) })
	t.Run("concurrent first activations", func(t *testing.T) { testConcurrentFirstActivation(t, newStores(t)) })
}

func testTokenLifecycle(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x11)

	_, err := s.Tokens.Get(ctx, id)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	_, err = s.Tokens.GetActive(ctx, id)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	tok, outcome := activate(t, s.Tokens, id, 7, base)
	require.Equal(t, token.OutcomeCreated, outcome)
	require.Equal(t, id, tok.ID)
	require.True(t, tok.Active)
	require.True(t, tok.LastUsedAt.IsZero())

	got, err := s.Tokens.GetActive(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.GitHubID)
	require.Equal(t, "gho_"+id.String()[:6], got.GitHubToken)
	require.True(t, got.CreatedAt.Equal(base))

	require.NoError(t, s.Tokens.Touch(ctx, id, base.Add(time.Minute)))
	got, err = s.Tokens.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, got.LastUsedAt.Equal(base.Add(time.Minute)))
	require.ErrorIs(t, s.Tokens.Touch(ctx, tokenID(0x99), base), apperrors.ErrTokenNotFound)

	_, outcome = activate(t, s.Tokens, id, 8, base.Add(time.Hour))
	require.Equal(t, token.OutcomeRebound, outcome)
	got, err = s.Tokens.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(8), got.GitHubID)
	require.True(t, got.CreatedAt.Equal(base), "rebinding keeps the creation time")

	require.NoError(t, s.Tokens.Deactivate(ctx, id))
	require.NoError(t, s.Tokens.Deactivate(ctx, id))
	require.NoError(t, s.Tokens.Deactivate(ctx, tokenID(0x98)))

	_, err = s.Tokens.GetActive(ctx, id)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	got, err = s.Tokens.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, got.Active)

	tok, outcome = activate(t, s.Tokens, id, 8, base.Add(2*time.Hour))
	require.Equal(t, token.OutcomeReactivated, outcome)
	require.True(t, tok.Active)
}

func testTransitionError(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x22)

	activate(t, s.Tokens, id, 1, base)
	require.NoError(t, s.Tokens.Deactivate(ctx, id))

	_, _, err := s.Tokens.Apply(ctx, id, token.Activate(id, token.Binding{GitHubID: 2, GitHubToken: "x"}, base, false))
	require.ErrorIs(t, err, apperrors.ErrTokenInactive)

	got, err := s.Tokens.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, int64(1), got.GitHubID)
}

func testDeactivateByGitHubID(t *testing.T, s Stores) {
	ctx := context.Background()
	a, b, c := tokenID(0x31), tokenID(0x32), tokenID(0x33)
	activate(t, s.Tokens, a, 100, base)
	activate(t, s.Tokens, b, 100, base)
	activate(t, s.Tokens, c, 200, base)

	n, err := s.Tokens.DeactivateByGitHubID(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	for _, id := range []proof.TokenID{a, b} {
		_, err := s.Tokens.GetActive(ctx, id)
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	}
	_, err = s.Tokens.GetActive(ctx, c)
	require.NoError(t, err)

	n, err = s.Tokens.DeactivateByGitHubID(ctx, 300)
	require.NoError(t, err)
	require.Zero(t, n)
}

func testSessionLifecycle(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x41)
	activate(t, s.Tokens, id, 5, base)

	created, err := s.Sessions.Create(ctx, sessions.NewSession{
		ID: "00112233445566778899aabbccddeeff", TokenID: id, GitHubID: 5, GitHubLogin: "five", GitHubDisplayName: "Five",
	}, base)
	require.NoError(t, err)
	require.True(t, created.Expiry.Equal(base.Add(SessionTTL)))

	got, err := s.Sessions.GetValid(ctx, created.ID, base.Add(SessionTTL-time.Second))
	require.NoError(t, err)
	require.Equal(t, id, got.TokenID)
	require.Equal(t, int64(5), got.GitHubID)
	require.Equal(t, "five", got.GitHubLogin)
	require.Equal(t, "Five", got.GitHubDisplayName)
	require.True(t, got.Expiry.Equal(created.Expiry))

	_, err = s.Sessions.GetValid(ctx, created.ID, base.Add(SessionTTL))
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = s.Sessions.GetValid(ctx, "ffeeddccbbaa99887766554433221100", base)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = s.Sessions.Create(ctx, sessions.NewSession{ID: created.ID, TokenID: id, GitHubLogin: "dup"}, base)
	require.ErrorIs(t, err, apperrors.ErrSessionExists)
}

func testSessionRequiresToken(t *testing.T, s Stores) {
	_, err := s.Sessions.Create(context.Background(), sessions.NewSession{
		ID: "00112233445566778899aabbccddeeff", TokenID: tokenID(0x42), GitHubLogin: "ghost",
	}, base)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func testSessionFollowsToken(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x43)
	activate(t, s.Tokens, id, 9, base)

	created, err := s.Sessions.Create(ctx, sessions.NewSession{ID: "0000000000000000000000000000abcd", TokenID: id, GitHubLogin: "nine"}, base)
	require.NoError(t, err)

	require.NoError(t, s.Tokens.Deactivate(ctx, id))
	_, err = s.Sessions.GetValid(ctx, created.ID, base)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	// Reactivation brings unexpired sessions back with the token.
	activate(t, s.Tokens, id, 9, base)
	_, err = s.Sessions.GetValid(ctx, created.ID, base)
	require.NoError(t, err)
}

func testDeleteExpired(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x51)
	activate(t, s.Tokens, id, 1, base)

	_, err := s.Sessions.Create(ctx, sessions.NewSession{ID: "00000000000000000000000000000001", TokenID: id, GitHubLogin: "a"}, base)
	require.NoError(t, err)
	_, err = s.Sessions.Create(ctx, sessions.NewSession{ID: "00000000000000000000000000000002", TokenID: id, GitHubLogin: "a"}, base.Add(30*time.Minute))
	require.NoError(t, err)

	n, err := s.Sessions.DeleteExpired(ctx, base.Add(SessionTTL))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.Sessions.GetValid(ctx, "00000000000000000000000000000002", base.Add(SessionTTL))
	require.NoError(t, err)
}

func testConcurrentCreate(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x61)
	activate(t, s.Tokens, id, 1, base)

	const n = 8
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid, err := sessions.NewID()
			if err != nil {
				return
			}
			if _, err := s.Sessions.Create(ctx, sessions.NewSession{ID: sid, TokenID: id, GitHubLogin: "a"}, base); err == nil {
				ids <- sid
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for sid := range ids {
		seen[sid] = true
	}
	require.Len(t, seen, n)
}

// Concurrent inits of a new token must run one after another against the
// stored row: exactly one creates it, the rest rebind it. A revoke that lands
// afterwards is not undone when reactivation is disabled.
func testConcurrentFirstActivation(t *testing.T, s Stores) {
	ctx := context.Background()
	id := tokenID(0x71)

	const n = 8
	var wg sync.WaitGroup
	outcomes := make(chan token.Outcome, n)
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(githubID int64) {
			defer wg.Done()
			_, out, err := s.Tokens.Apply(ctx, id,
				token.Activate(id, token.Binding{GitHubID: githubID, GitHubToken: "gho"}, base, false))
			if err != nil {
				errs <- err
				return
			}
			outcomes <- out
		}(int64(100 + i))
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	counts := map[token.Outcome]int{}
	for out := range outcomes {
		counts[out]++
	}
	require.Equal(t, 1, counts[token.OutcomeCreated])
	require.Equal(t, n-1, counts[token.OutcomeRebound])

	require.NoError(t, s.Tokens.Deactivate(ctx, id))
	_, _, err := s.Tokens.Apply(ctx, id,
		token.Activate(id, token.Binding{GitHubID: 1, GitHubToken: "gho"}, base, false))
	require.ErrorIs(t, err, apperrors.ErrTokenInactive)

	got, err := s.Tokens.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, got.Active)
}
