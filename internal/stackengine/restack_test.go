package stackengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/stackengine"
)

// TestRestackBasicAfterAmend covers the case where trunk moves,
// a single stacked branch needs a rebase, Restack replays it and force
// pushes, and the branch's recorded status/head_sha reflect the result.
func TestRestackBasicAfterAmend(t *testing.T) {
	engine, tr := newEngine(t)
	ctx := t.Context()
	repo := tr.AsRepo(t)

	stack, err := engine.CreateStack(ctx, "main")
	require.NoError(t, err)
	_, err = engine.CreateStackBranch(ctx, stack.ID, "f-a", "main")
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(ctx, "main"))
	tr.CommitFile(t, "trunk.txt", "trunk moved on\n")

	plan, err := engine.PreviewRestack(ctx, stack.ID)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, meta.ActionRebase, plan.Steps[0].Action)
	require.Equal(t, meta.ActionForcePush, plan.Steps[1].Action)

	result, err := engine.Restack(ctx, stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.RestackSuccess, result.Status)
	require.Equal(t, []string{"f-a"}, result.Restacked)

	reloaded, err := engine.LoadStack(stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.StatusUpToDate, reloaded.Branches["f-a"].Status)

	needsRebase, err := repo.NeedsRebase(ctx, "f-a", "main")
	require.NoError(t, err)
	require.False(t, needsRebase)
}

// TestRestackContinuesAfterForcePushFailure covers the case where the local
// rebase succeeds but the subsequent force-push fails: the walk must still
// record the branch as restacked/up_to_date rather than aborting.
func TestRestackContinuesAfterForcePushFailure(t *testing.T) {
	engine, tr := newEngine(t)
	ctx := t.Context()
	repo := tr.AsRepo(t)

	stack, err := engine.CreateStack(ctx, "main")
	require.NoError(t, err)
	_, err = engine.CreateStackBranch(ctx, stack.ID, "f-a", "main")
	require.NoError(t, err)
	tr.Git(t, "push", "-u", "origin", "f-a")

	require.NoError(t, repo.Checkout(ctx, "main"))
	tr.CommitFile(t, "trunk.txt", "trunk moved on\n")

	// Point origin's push URL at a path with no repository: Restack's fetch
	// still succeeds, but the force-push after the locally successful rebase
	// fails.
	_, err = repo.Git(ctx, "remote", "set-url", "--push", "origin", "/nonexistent/remote.git")
	require.NoError(t, err)

	result, err := engine.Restack(ctx, stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.RestackSuccess, result.Status)
	require.Equal(t, []string{"f-a"}, result.Restacked)

	reloaded, err := engine.LoadStack(stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.StatusUpToDate, reloaded.Branches["f-a"].Status)
}

// TestRestackAbortsOnConflict covers the case where a rebase conflict stops
// the walk: the rebase is aborted, the conflicted branch is marked
// `conflicted`, and the working tree is left clean with nothing parked for
// ContinueRestack to resume.
func TestRestackAbortsOnConflict(t *testing.T) {
	engine, tr := newEngine(t)
	ctx := t.Context()
	repo := tr.AsRepo(t)

	stack, err := engine.CreateStack(ctx, "main")
	require.NoError(t, err)
	_, err = engine.CreateStackBranch(ctx, stack.ID, "f-a", "main")
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(ctx, "f-a"))
	tr.CommitFile(t, "shared.txt", "feature version\n")

	require.NoError(t, repo.Checkout(ctx, "main"))
	tr.CommitFile(t, "shared.txt", "trunk version\n")

	result, err := engine.Restack(ctx, stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.RestackConflicts, result.Status)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "f-a", result.Conflicts[0].Branch)
	require.Contains(t, result.Conflicts[0].Files, "shared.txt")

	inProgress, err := repo.IsRebaseInProgress(ctx)
	require.NoError(t, err)
	require.False(t, inProgress)

	reloaded, err := engine.LoadStack(stack.ID)
	require.NoError(t, err)
	require.Equal(t, meta.StatusConflicted, reloaded.Branches["f-a"].Status)

	_, err = engine.ContinueRestack(ctx)
	require.Error(t, err)
}
