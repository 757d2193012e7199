package stackengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git/gittest"
	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/stackengine"
)

func TestReconcileUpToDate(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))
	head, err := repo.GetHeadSHA(ctx, "f-a")
	require.NoError(t, err)

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-a": {Name: "f-a", Parent: "main", HeadSHA: head},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Empty(t, report.Orphaned)
	require.Empty(t, report.Warnings)
	require.Equal(t, meta.StatusUpToDate, stack.Branches["f-a"].Status)
}

// TestReconcileDetectsOrphan covers the case where the branch itself has
// been deleted out from under the stack.
func TestReconcileDetectsOrphan(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-b": {Name: "f-b", Parent: "f-a"},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []string{"f-b"}, report.Orphaned)
	require.Empty(t, report.Warnings)
	require.Equal(t, meta.StatusOrphaned, stack.Branches["f-b"].Status)
	require.NotNil(t, stack.Branches["f-b"].OrphanedAt)
}

// TestReconcileIsIdempotentOnOrphan covers P4: two immediate consecutive
// reconcile calls against a still-missing branch produce the same report,
// and the branch is not removed within the grace period.
func TestReconcileIsIdempotentOnOrphan(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-b": {Name: "f-b", Parent: "main"},
		},
	}

	first, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []string{"f-b"}, first.Orphaned)

	second, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []string{"f-b"}, second.Orphaned)
	require.Equal(t, meta.StatusOrphaned, stack.Branches["f-b"].Status)
}

// TestReconcileRemovesBranchOrphanedPastGracePeriod covers spec.md §3's
// lifecycle rule: a branch still orphaned after OrphanGracePeriod has
// elapsed since it was first detected is removed outright.
func TestReconcileRemovesBranchOrphanedPastGracePeriod(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	stale := time.Now().UTC().Add(-2 * stackengine.OrphanGracePeriod)
	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-b": {Name: "f-b", Parent: "main", Status: meta.StatusOrphaned, OrphanedAt: &stale},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []string{"f-b"}, report.Orphaned)
	require.NotContains(t, stack.Branches, "f-b")
}

// TestReconcileWarnsParentDeleted covers the branch-exists/parent-deleted
// case: the branch itself is fine, but its recorded parent is gone. Status
// falls back to unknown and a ParentDeleted warning is raised; the branch
// is not reported as orphaned.
func TestReconcileWarnsParentDeleted(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))
	require.NoError(t, repo.CreateBranch(ctx, "f-b", "f-a"))
	require.NoError(t, repo.DeleteBranch(ctx, "f-a"))

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-b": {Name: "f-b", Parent: "f-a"},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Empty(t, report.Orphaned)
	require.Equal(t, []meta.ReconcileWarning{{Branch: "f-b", Warning: meta.WarningParentDeleted}}, report.Warnings)
	require.Equal(t, meta.StatusUnknown, stack.Branches["f-b"].Status)
}

// TestReconcileWarnsParentNotAncestor covers history rewritten out from
// under a branch's recorded parent relationship.
func TestReconcileWarnsParentNotAncestor(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))
	require.NoError(t, repo.CreateBranch(ctx, "f-b", "main"))
	require.NoError(t, repo.Checkout(ctx, "f-a"))
	tr.CommitFile(t, "a.txt", "only on f-a\n")

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-b": {Name: "f-b", Parent: "f-a"},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Empty(t, report.Orphaned)
	require.Equal(t, []meta.ReconcileWarning{{Branch: "f-b", Warning: meta.WarningParentNotAncestor}}, report.Warnings)
	require.Equal(t, meta.StatusNeedsRebase, stack.Branches["f-b"].Status)
}

func TestReconcileDetectsNeedsRebase(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))
	head, err := repo.GetHeadSHA(ctx, "f-a")
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(ctx, "main"))
	tr.CommitFile(t, "trunk.txt", "trunk moved on\n")

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-a": {Name: "f-a", Parent: "main", HeadSHA: head},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []meta.ReconcileWarning{{Branch: "f-a", Warning: meta.WarningParentNotAncestor}}, report.Warnings)
	require.Equal(t, meta.StatusNeedsRebase, stack.Branches["f-a"].Status)
}

// TestReconcileDetectsExternallyModified catches a branch whose head moved
// since it was last recorded, even though its parent did not: the parent
// relationship is still fine (up to date), so only the warning fires.
func TestReconcileDetectsExternallyModified(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	repo := tr.AsRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.CreateBranch(ctx, "f-a", "main"))
	staleHead, err := repo.GetHeadSHA(ctx, "f-a")
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(ctx, "f-a"))
	tr.CommitFile(t, "more.txt", "amended externally\n")

	stack := &meta.Stack{
		Root: "main",
		Branches: map[string]meta.StackBranch{
			"f-a": {Name: "f-a", Parent: "main", HeadSHA: staleHead},
		},
	}

	report, err := stackengine.Reconcile(ctx, repo, stack)
	require.NoError(t, err)
	require.Equal(t, []meta.ReconcileWarning{{Branch: "f-a", Warning: meta.WarningExternallyModified}}, report.Warnings)
	require.Equal(t, meta.StatusUpToDate, stack.Branches["f-a"].Status)
	newHead, err := repo.GetHeadSHA(ctx, "f-a")
	require.NoError(t, err)
	require.Equal(t, newHead, stack.Branches["f-a"].HeadSHA)
}
