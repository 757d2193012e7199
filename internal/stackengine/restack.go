package stackengine

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/git"
	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/utils/logutils"
)

// PreviewRestack computes, without touching the working tree, the ordered
// plan a Restack call would execute, walking branches in TopoOrder: a
// branch that is already up to date gets one skip step; a branch that needs
// a rebase gets a rebase step (with the commits it replays) followed by a
// force-push step.
func (e *Engine) PreviewRestack(ctx context.Context, stackID string) (*meta.RestackPlan, error) {
	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		return nil, errors.Errorf("no such stack: %s", stackID)
	}

	order := TopoOrder(stack)
	plan := &meta.RestackPlan{StackID: stackID}

	for _, name := range order {
		branch := stack.Branches[name]

		needsRebase, err := e.repo.NeedsRebase(ctx, name, branch.Parent)
		if err != nil {
			return nil, err
		}
		if !needsRebase {
			plan.Steps = append(plan.Steps, meta.RestackStep{
				Branch: name, Parent: branch.Parent, Action: meta.ActionSkipUpToDate,
			})
			continue
		}

		commits, err := e.repo.CommitsToReplay(ctx, name, branch.Parent)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, meta.RestackStep{
			Branch: name, Parent: branch.Parent, Action: meta.ActionRebase, CommitsToReplay: commits,
		})
		plan.Steps = append(plan.Steps, meta.RestackStep{
			Branch: name, Parent: branch.Parent, Action: meta.ActionForcePush,
		})
	}

	logrus.WithField("plan", logutils.Format("%+v", plan)).Debug("computed restack plan")
	return plan, nil
}

// Restack walks stackID's branches in topological order, rebasing each onto
// its (possibly already-restacked) parent and force-pushing with a lease, so
// a concurrent push by someone else is never silently clobbered. The first
// rebase that stops on a conflict aborts it, marks the branch `conflicted`,
// and stops the walk -- remaining branches are left untouched and the
// working tree is left clean, with no rebase in progress and no state to
// resume. The caller resolves the conflict by hand (amend, reorder, etc.)
// and re-runs Restack, which recomputes from whatever Git now looks like. A
// force-push failure after a successful rebase is logged and does not stop
// the walk: the rebase already succeeded locally, so the branch is still
// recorded `up_to_date`. On full success every branch's metadata
// Status/HeadSHA is updated and last_sync is stamped (satisfying P2's
// "every branch visited exactly once, parent before child" and P4's
// idempotent-on-retry property).
func (e *Engine) Restack(ctx context.Context, stackID string) (*meta.RestackResult, error) {
	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		return nil, errors.Errorf("no such stack: %s", stackID)
	}

	if err := e.repo.Fetch(ctx, e.repo.RemoteName()); err != nil {
		logrus.WithError(err).Warn("fetch before restack failed, proceeding with possibly-stale remote-tracking refs")
	}

	order := TopoOrder(stack)
	return e.runRestackWalk(ctx, doc, stack, order)
}

// ContinueRestack resumes a rebase Git itself reports as in progress -- one
// left behind by something other than this engine's own Restack walk,
// which always aborts cleanly on conflict rather than parking one (see
// Restack's doc comment). It is a no-op error when no rebase is in
// progress.
func (e *Engine) ContinueRestack(ctx context.Context) (*meta.RestackResult, error) {
	inProgress, err := e.repo.IsRebaseInProgress(ctx)
	if err != nil {
		return nil, err
	}
	if !inProgress {
		return nil, errors.New("no rebase in progress to continue")
	}

	if err := e.repo.ContinueRebase(ctx); err != nil {
		return &meta.RestackResult{Status: meta.RestackFailed, Error: err.Error()}, err
	}

	return &meta.RestackResult{Status: meta.RestackSuccess}, nil
}

func (e *Engine) runRestackWalk(ctx context.Context, doc *meta.StackMetadata, stack *meta.Stack, order []string) (*meta.RestackResult, error) {
	result := &meta.RestackResult{Status: meta.RestackSuccess}
	for _, name := range order {
		branch := stack.Branches[name]

		needsRebase, err := e.repo.NeedsRebase(ctx, name, branch.Parent)
		if err != nil {
			return nil, err
		}
		if !needsRebase {
			if err := e.updateBranchAfterRestack(ctx, stack, name); err != nil {
				return nil, err
			}
			result.Restacked = append(result.Restacked, name)
			continue
		}

		if err := e.repo.Rebase(ctx, name, branch.Parent); err != nil {
			var conflict *git.ConflictError
			if errors.As(err, &conflict) {
				if abortErr := e.repo.AbortRebase(ctx); abortErr != nil {
					logrus.WithError(abortErr).Error("failed to abort rebase after conflict")
				}
				b := stack.Branches[name]
				b.Status = meta.StatusConflicted
				stack.Branches[name] = b
				stack.UpdatedAt = time.Now().UTC()
				if saveErr := e.store.Save(doc); saveErr != nil {
					return nil, saveErr
				}
				result.Status = meta.RestackConflicts
				result.Conflicts = []meta.ConflictedBranch{{Branch: name, Files: conflict.ConflictFiles}}
				logrus.WithField("branch", name).Warn("restack stopped on conflict")
				return result, nil
			}
			result.Status = meta.RestackFailed
			result.Error = err.Error()
			_ = e.store.Save(doc)
			return result, err
		}

		if err := e.forcePushAndRecord(ctx, name); err != nil {
			logrus.WithError(err).WithField("branch", name).
				Warn("force push failed after successful rebase, continuing")
		}
		if err := e.updateBranchAfterRestack(ctx, stack, name); err != nil {
			return nil, err
		}
		result.Restacked = append(result.Restacked, name)
	}

	now := time.Now().UTC()
	doc.LastSync = &now
	if err := e.store.Save(doc); err != nil {
		return nil, err
	}
	return result, nil
}

// forcePushAndRecord pushes branch with a lease set to whatever this process
// last observed on the remote-tracking ref. A branch that has never been
// pushed has no remote-tracking ref at all: the lease is left empty, which
// git.ForcePushWithLease's underlying `--force-with-lease=<ref>:` form
// reads as "the remote must not already have this ref".
func (e *Engine) forcePushAndRecord(ctx context.Context, branch string) error {
	remote := e.repo.RemoteName()
	lease, err := e.repo.GetHeadSHA(ctx, remote+"/"+branch)
	if err != nil {
		var branchErr *git.BranchError
		if !errors.As(err, &branchErr) {
			return err
		}
		lease = ""
	}
	return e.repo.ForcePushWithLease(ctx, remote, branch, lease)
}

func (e *Engine) updateBranchAfterRestack(ctx context.Context, stack *meta.Stack, name string) error {
	headSHA, err := e.repo.GetHeadSHA(ctx, name)
	if err != nil {
		return err
	}
	b := stack.Branches[name]
	b.Status = meta.StatusUpToDate
	b.HeadSHA = headSHA
	stack.Branches[name] = b
	stack.UpdatedAt = time.Now().UTC()
	return nil
}
