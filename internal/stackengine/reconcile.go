package stackengine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/git"
	"maguffin.dev/stackengine/internal/meta"
)

// OrphanGracePeriod is how long a branch may sit orphaned before a
// reconcile pass removes it outright, per spec.md §3's "removed ... if
// reconciliation finds them orphaned for longer than one full cycle."
// Nothing in the original Rust service numbers this -- it never removed
// orphaned branches at all -- so this is a deliberately conservative
// default rather than a grounded constant.
const OrphanGracePeriod = 1 * time.Hour

// branchSnapshot is everything Reconcile needs to know about one branch's
// relationship to Git reality, taken in a single pass over the repo so the
// Git handle is never held across the metadata write that follows.
type branchSnapshot struct {
	exists       bool
	parentExists bool
	isAncestor   bool // meaningful only if parentExists
	needsRebase  bool // meaningful only if parentExists && isAncestor
	headSHA      string
	headKnown    bool
}

// Reconcile takes a point-in-time snapshot of the repo for every branch in
// stack, derives each branch's BranchStatus from it, mutates stack in
// place, and returns a ReconcileReport of everything found orphaned (or
// removed for having stayed orphaned past OrphanGracePeriod) and every
// warning raised. It never touches the Git working tree and does not
// persist; callers are expected to Store.Save the document themselves.
//
// Status derivation, grounded on stack_service.rs's reconcile:
//   - the branch's local ref is gone -> StatusOrphaned, reported as orphaned
//   - the branch exists but its parent's local ref is gone -> StatusUnknown,
//     warn ParentDeleted (the branch's own state is simply unknown until the
//     parent comes back or the user intervenes)
//   - the branch's recorded parent is no longer an ancestor of the branch's
//     head -> StatusNeedsRebase, warn ParentNotAncestor
//   - needs_rebase(branch, parent) -> StatusNeedsRebase
//   - otherwise -> StatusUpToDate
//   - independently of the above: if the branch's head moved since HeadSHA
//     was last recorded, warn ExternallyModified and update the recorded
//     sha (this overrides any ParentDeleted/ParentNotAncestor warning for
//     the same branch, matching the original's single warning slot)
func Reconcile(ctx context.Context, repo *git.Repo, stack *meta.Stack) (*meta.ReconcileReport, error) {
	snapshots := make(map[string]branchSnapshot, len(stack.Branches))

	for name, branch := range stack.Branches {
		snap := branchSnapshot{}

		exists, err := repo.BranchExists(ctx, name)
		if err != nil {
			return nil, err
		}
		snap.exists = exists
		if !exists {
			snapshots[name] = snap
			continue
		}

		headSHA, err := repo.GetHeadSHA(ctx, name)
		if err != nil {
			return nil, err
		}
		snap.headSHA = headSHA
		snap.headKnown = true

		parentExists, err := repo.BranchExists(ctx, branch.Parent)
		if err != nil {
			return nil, err
		}
		snap.parentExists = parentExists
		if parentExists {
			isAncestor, err := repo.IsAncestor(ctx, branch.Parent, name)
			if err != nil {
				return nil, err
			}
			snap.isAncestor = isAncestor
			if isAncestor {
				needsRebase, err := repo.NeedsRebase(ctx, name, branch.Parent)
				if err != nil {
					return nil, err
				}
				snap.needsRebase = needsRebase
			}
		}

		snapshots[name] = snap
	}

	report := &meta.ReconcileReport{}
	now := time.Now().UTC()

	for name, branch := range stack.Branches {
		snap := snapshots[name]

		if !snap.exists {
			report.Orphaned = append(report.Orphaned, name)
			if branch.Status == meta.StatusOrphaned && branch.OrphanedAt != nil &&
				now.Sub(*branch.OrphanedAt) > OrphanGracePeriod {
				logrus.WithField("branch", name).
					Info("removing branch orphaned past grace period")
				delete(stack.Branches, name)
				continue
			}
			branch.Status = meta.StatusOrphaned
			if branch.OrphanedAt == nil {
				branch.OrphanedAt = &now
			}
			stack.Branches[name] = branch
			continue
		}

		branch.OrphanedAt = nil

		var warning meta.Warning
		hasWarning := false
		switch {
		case !snap.parentExists:
			branch.Status = meta.StatusUnknown
			warning, hasWarning = meta.WarningParentDeleted, true
		case !snap.isAncestor:
			branch.Status = meta.StatusNeedsRebase
			warning, hasWarning = meta.WarningParentNotAncestor, true
		case snap.needsRebase:
			branch.Status = meta.StatusNeedsRebase
		default:
			branch.Status = meta.StatusUpToDate
		}

		if snap.headKnown && branch.HeadSHA != snap.headSHA {
			if branch.HeadSHA != "" {
				warning, hasWarning = meta.WarningExternallyModified, true
			}
			branch.HeadSHA = snap.headSHA
		}

		if hasWarning {
			report.Warnings = append(report.Warnings, meta.ReconcileWarning{Branch: name, Warning: warning})
			logrus.WithFields(logrus.Fields{"branch": name, "warning": warning}).Warn("reconcile raised a warning")
		}

		stack.Branches[name] = branch
	}

	return report, nil
}
