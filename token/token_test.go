package token_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/token"
	tokenfakerepo "github.com/jrsteele09/go-keygrant/token/repofake"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testID  = proof.TokenID{1, 2, 3}
)

func TestActivate(t *testing.T) {
	binding := token.Binding{GitHubID: 42, GitHubToken: "gho_new"}

	t.Run("absent creates active token", func(t *testing.T) {
		next, outcome, err := token.Activate(testID, binding, testNow, true)(nil)
		require.NoError(t, err)
		require.Equal(t, token.OutcomeCreated, outcome)
		require.Equal(t, testID, next.ID)
		require.True(t, next.Active)
		require.Equal(t, int64(42), next.GitHubID)
		require.Equal(t, "gho_new", next.GitHubToken)
		require.Equal(t, testNow, next.CreatedAt)
		require.True(t, next.LastUsedAt.IsZero())
	})

	t.Run("active rebinds", func(t *testing.T) {
		current := &token.Token{ID: testID, GitHubID: 7, GitHubToken: "gho_old", Active: true, CreatedAt: testNow.Add(-time.Hour)}
		next, outcome, err := token.Activate(testID, binding, testNow, true)(current)
		require.NoError(t, err)
		require.Equal(t, token.OutcomeRebound, outcome)
		require.Equal(t, int64(42), next.GitHubID)
		require.Equal(t, "gho_new", next.GitHubToken)
		require.Equal(t, testNow.Add(-time.Hour), next.CreatedAt)
		require.Equal(t, "gho_old", current.GitHubToken, "current must not be mutated")
	})

	t.Run("inactive reactivates", func(t *testing.T) {
		current := &token.Token{ID: testID, GitHubID: 42, Active: false}
		next, outcome, err := token.Activate(testID, binding, testNow, true)(current)
		require.NoError(t, err)
		require.Equal(t, token.OutcomeReactivated, outcome)
		require.True(t, next.Active)
		require.False(t, current.Active)
	})

	t.Run("inactive stays revoked when reactivation is off", func(t *testing.T) {
		current := &token.Token{ID: testID, GitHubID: 42, Active: false}
		next, outcome, err := token.Activate(testID, binding, testNow, false)(current)
		require.ErrorIs(t, err, apperrors.ErrTokenInactive)
		require.Nil(t, next)
		require.Equal(t, token.OutcomeNone, outcome)
	})
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "created", token.OutcomeCreated.String())
	require.Equal(t, "rebound", token.OutcomeRebound.String())
	require.Equal(t, "reactivated", token.OutcomeReactivated.String())
	require.Equal(t, "deactivated", token.OutcomeDeactivated.String())
	require.Equal(t, "none", token.OutcomeNone.String())
}

func TestFakeTokenRepo(t *testing.T) {
	ctx := context.Background()
	repo := tokenfakerepo.NewFakeTokensRepo()

	_, err := repo.Get(ctx, testID)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	_, outcome, err := repo.Apply(ctx, testID, token.Activate(testID, token.Binding{GitHubID: 1, GitHubToken: "a"}, testNow, true))
	require.NoError(t, err)
	require.Equal(t, token.OutcomeCreated, outcome)

	other := proof.TokenID{9}
	_, _, err = repo.Apply(ctx, other, token.Activate(other, token.Binding{GitHubID: 1, GitHubToken: "b"}, testNow, true))
	require.NoError(t, err)

	third := proof.TokenID{8}
	_, _, err = repo.Apply(ctx, third, token.Activate(third, token.Binding{GitHubID: 2, GitHubToken: "c"}, testNow, true))
	require.NoError(t, err)

	require.NoError(t, repo.Touch(ctx, testID, testNow.Add(time.Minute)))
	got, err := repo.GetActive(ctx, testID)
	require.NoError(t, err)
	require.Equal(t, testNow.Add(time.Minute), got.LastUsedAt)

	require.ErrorIs(t, repo.Touch(ctx, proof.TokenID{0xff}, testNow), apperrors.ErrTokenNotFound)

	n, err := repo.DeactivateByGitHubID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = repo.GetActive(ctx, testID)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	_, err = repo.GetActive(ctx, third)
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, third))
	require.NoError(t, repo.Deactivate(ctx, third))
	require.NoError(t, repo.Deactivate(ctx, proof.TokenID{0xee}))

	_, outcome, err = repo.Apply(ctx, testID, token.Activate(testID, token.Binding{GitHubID: 1, GitHubToken: "a2"}, testNow, true))
	require.NoError(t, err)
	require.Equal(t, token.OutcomeReactivated, outcome)
}
