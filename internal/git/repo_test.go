package git_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
	"maguffin.dev/stackengine/internal/git/gittest"
)

func TestDefaultBranch(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)

	branch, err := repo.DefaultBranch(t.Context())
	require.NoError(t, err)
	require.Equal(t, "main", branch)
}

func TestBranchCRUD(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	exists, err := repo.BranchExists(ctx, "feature-1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))

	exists, err = repo.BranchExists(ctx, "feature-1")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	current, err := repo.CurrentBranchName(ctx)
	require.NoError(t, err)
	require.Equal(t, "feature-1", current)

	require.NoError(t, repo.Checkout(ctx, "main"))
	require.NoError(t, repo.DeleteBranch(ctx, "feature-1"))

	exists, err = repo.BranchExists(ctx, "feature-1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestNeedsRebase(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))

	needs, err := repo.NeedsRebase(ctx, "feature-1", "main")
	require.NoError(t, err)
	require.False(t, needs, "freshly branched, should not need a rebase yet")

	tr.Git(t, "checkout", "main")
	tr.CommitFile(t, "main-only.txt", "trunk moved on\n")

	needs, err = repo.NeedsRebase(ctx, "feature-1", "main")
	require.NoError(t, err)
	require.True(t, needs, "parent advanced since branch forked, should need a rebase")
}

func TestCommitsToReplay(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))
	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	tr.CommitFile(t, "a.txt", "one\n")
	tr.CommitFile(t, "b.txt", "two\n")

	commits, err := repo.CommitsToReplay(ctx, "feature-1", "main")
	require.NoError(t, err)
	require.Len(t, commits, 2)
}

func TestIsAncestor(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	mainHead, err := repo.GetHeadSHA(ctx, "main")
	require.NoError(t, err)

	require.NoError(t, repo.CreateBranch(ctx, "feature-1", "main"))
	require.NoError(t, repo.Checkout(ctx, "feature-1"))
	tr.CommitFile(t, "a.txt", "one\n")

	featureHead, err := repo.GetHeadSHA(ctx, "feature-1")
	require.NoError(t, err)

	isAncestor, err := repo.IsAncestor(ctx, mainHead, featureHead)
	require.NoError(t, err)
	require.True(t, isAncestor)

	isAncestor, err = repo.IsAncestor(ctx, featureHead, mainHead)
	require.NoError(t, err)
	require.False(t, isAncestor)
}
