package stackengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git/gittest"
	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/stackengine"
)

func newEngine(t *testing.T) (*stackengine.Engine, *gittest.GitTestRepo) {
	t.Helper()
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	store := meta.Open(repo.PrivateDir())
	return stackengine.New(repo, store), tr
}

func TestCreateStackRequiresExistingRoot(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.CreateStack(t.Context(), "does-not-exist")
	require.Error(t, err)
}

func TestCreateStackAndBranch(t *testing.T) {
	engine, tr := newEngine(t)

	stack, err := engine.CreateStack(t.Context(), "main")
	require.NoError(t, err)
	require.Equal(t, "main", stack.Root)
	require.Empty(t, stack.Branches)

	branch, err := engine.CreateStackBranch(t.Context(), stack.ID, "feature-a", "main")
	require.NoError(t, err)
	require.Equal(t, "main", branch.Parent)
	require.Equal(t, meta.StatusUpToDate, branch.Status)
	require.NotEmpty(t, branch.HeadSHA)

	head, err := tr.AsRepo(t).GetHeadSHA(t.Context(), "feature-a")
	require.NoError(t, err)
	require.Equal(t, head, branch.HeadSHA)
}

// TestCreateStackBranchChain reproduces a three-deep stack: main -> f-a ->
// f-b -> f-c, each branch created from the previous.
func TestCreateStackBranchChain(t *testing.T) {
	engine, _ := newEngine(t)

	stack, err := engine.CreateStack(t.Context(), "main")
	require.NoError(t, err)

	_, err = engine.CreateStackBranch(t.Context(), stack.ID, "f-a", "main")
	require.NoError(t, err)
	_, err = engine.CreateStackBranch(t.Context(), stack.ID, "f-b", "f-a")
	require.NoError(t, err)
	_, err = engine.CreateStackBranch(t.Context(), stack.ID, "f-c", "f-b")
	require.NoError(t, err)

	reloaded, err := engine.LoadStack(stack.ID)
	require.NoError(t, err)
	order := stackengine.TopoOrder(reloaded)
	require.Equal(t, []string{"f-a", "f-b", "f-c"}, order)
}
