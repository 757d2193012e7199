package git_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
	"maguffin.dev/stackengine/internal/git/gittest"
)

func TestRebaseSuccess(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))
	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	tr.CommitFile(t, "feature.txt", "feature work\n")

	tr.Git(t, "checkout", "main")
	tr.CommitFile(t, "trunk.txt", "trunk moved on\n")

	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	require.NoError(t, repo.Rebase(ctx, "feature-1", "main"))

	inProgress, err := repo.IsRebaseInProgress(ctx)
	require.NoError(t, err)
	require.False(t, inProgress)

	needs, err := repo.NeedsRebase(ctx, "feature-1", "main")
	require.NoError(t, err)
	require.False(t, needs)
}

func TestRebaseConflict(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))
	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	tr.CommitFile(t, "shared.txt", "feature version\n")

	tr.Git(t, "checkout", "main")
	tr.CommitFile(t, "shared.txt", "trunk version\n")

	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	err := repo.Rebase(ctx, "feature-1", "main")
	require.Error(t, err)

	var conflictErr *git.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Contains(t, conflictErr.ConflictFiles, "shared.txt")

	inProgress, err := repo.IsRebaseInProgress(ctx)
	require.NoError(t, err)
	require.True(t, inProgress)

	require.NoError(t, repo.AbortRebase(ctx))
	inProgress, err = repo.IsRebaseInProgress(ctx)
	require.NoError(t, err)
	require.False(t, inProgress)
}

func TestForcePushWithLease(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Fetch(ctx, "origin"))
	observedSHA, err := repo.GetHeadSHA(ctx, "origin/main")
	require.NoError(t, err)

	tr.CommitFile(t, "local-work.txt", "more local work\n")
	require.NoError(t, repo.ForcePushWithLease(ctx, "origin", "main", observedSHA))

	// The lease we hold is now stale: the remote has moved on since
	// observedSHA, so a second push with the same lease must be rejected.
	tr.CommitFile(t, "more-local-work.txt", "even more local work\n")
	err = repo.ForcePushWithLease(ctx, "origin", "main", observedSHA)
	require.Error(t, err)
	var rejected *git.PushRejectedError
	require.ErrorAs(t, err, &rejected)
}
