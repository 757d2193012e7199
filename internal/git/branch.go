package git

import (
	"context"
	"strings"

	"emperror.dev/errors"
)

// CurrentBranchName returns the branch HEAD currently points to. Returns
// BranchError if HEAD is detached.
func (r *Repo) CurrentBranchName(ctx context.Context) (string, error) {
	out, err := r.Git(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if StderrContains(err, "not a symbolic ref") {
			return "", &BranchError{Msg: "HEAD is detached"}
		}
		return "", err
	}
	return out, nil
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := r.Git(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		var runErr *RunError
		if errors.As(err, &runErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoteBranchExists reports whether a branch with the given name exists on
// the configured remote, without fetching.
func (r *Repo) RemoteBranchExists(ctx context.Context, name string) (bool, error) {
	out, err := r.Git(ctx, "ls-remote", "--heads", r.RemoteName(), name)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CreateBranch creates a new local branch named name pointing at from,
// without checking it out.
func (r *Repo) CreateBranch(ctx context.Context, name string, from string) error {
	if _, err := r.Git(ctx, "branch", name, from); err != nil {
		if StderrContains(err, "already exists") {
			return &BranchError{Msg: "branch " + name + " already exists"}
		}
		return err
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	_, err := r.Git(ctx, "branch", "-D", name)
	return err
}

// Checkout switches the working tree to the named branch.
func (r *Repo) Checkout(ctx context.Context, name string) error {
	_, err := r.Git(ctx, "checkout", name)
	if err != nil {
		return errors.WrapIff(err, "failed to checkout %q", name)
	}
	return nil
}

// Fetch fetches from the named remote (or the configured default remote if
// remote is empty), updating remote-tracking refs.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = r.RemoteName()
	}
	_, err := r.Git(ctx, "fetch", remote)
	if err != nil {
		return errors.WrapIff(err, "failed to fetch %q", remote)
	}
	return nil
}

// GetHeadSHA resolves a branch (or any revision) to its current commit SHA.
func (r *Repo) GetHeadSHA(ctx context.Context, revision string) (string, error) {
	out, err := r.Git(ctx, "rev-parse", "--verify", revision)
	if err != nil {
		if StderrContains(err, "unknown revision") || StderrContains(err, "bad revision") ||
			StderrContains(err, "Needed a single revision") {
			return "", &BranchError{Msg: "no such branch or revision: " + revision}
		}
		return "", err
	}
	return out, nil
}
