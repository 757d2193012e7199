package gittest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
)

// WithCheckoutBranch runs f with branch checked out, then restores whatever
// branch was checked out before.
func WithCheckoutBranch(t *testing.T, repo *git.Repo, branch string, f func()) {
	t.Helper()
	original, err := repo.CurrentBranchName(t.Context())
	require.NoError(t, err)
	require.NoError(t, repo.Checkout(t.Context(), branch))
	defer func() {
		require.NoError(t, repo.Checkout(t.Context(), original))
	}()
	f()
}
