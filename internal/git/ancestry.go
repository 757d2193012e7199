package git

import (
	"context"
	"strings"
)

// MergeBase returns the best common ancestor of the given committishes.
func (r *Repo) MergeBase(ctx context.Context, committishes ...string) (string, error) {
	args := append([]string{"merge-base"}, committishes...)
	out, err := r.Git(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	out, err := r.GitOutput(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		return false, err
	}
	if out.ExitCode != 0 && out.ExitCode != 1 {
		return false, &RunError{Args: []string{"merge-base", "--is-ancestor"}, Stderr: out.Stderr}
	}
	return out.ExitCode == 0, nil
}

// NeedsRebase reports whether branch needs to be rebased onto parent: true
// iff the merge-base of branch and parent is not parent's current head,
// i.e. parent has moved since branch last incorporated it.
func (r *Repo) NeedsRebase(ctx context.Context, branch, parent string) (bool, error) {
	parentHead, err := r.GetHeadSHA(ctx, parent)
	if err != nil {
		return false, err
	}
	base, err := r.MergeBase(ctx, branch, parent)
	if err != nil {
		return false, err
	}
	return base != parentHead, nil
}

// CommitsToReplay lists, oldest first, the commits on branch that are not
// yet on target -- the commits a rebase of branch onto target would replay.
func (r *Repo) CommitsToReplay(ctx context.Context, branch, target string) ([]string, error) {
	out, err := r.Git(ctx, "rev-list", "--reverse", target+".."+branch, "--")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
