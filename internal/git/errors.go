package git

import "fmt"

// RunError wraps a failed shelled git invocation.
type RunError struct {
	Args   []string
	Stderr []byte
	Cause  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("git %v: %s: %s", e.Args, e.Cause, string(e.Stderr))
}

func (e *RunError) Unwrap() error { return e.Cause }

// RepositoryNotFoundError is returned by Open/Discover when the given path
// isn't inside a Git repository.
type RepositoryNotFoundError struct {
	Path  string
	Cause error
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("not a git repository: %s", e.Path)
}

func (e *RepositoryNotFoundError) Unwrap() error { return e.Cause }

// BranchError reports a branch-level failure with no more specific taxonomy.
type BranchError struct {
	Msg string
}

func (e *BranchError) Error() string { return e.Msg }

// ConflictError is returned by Rebase when the rebase stops with unmerged
// paths, as opposed to failing outright.
type ConflictError struct {
	Branch        string
	ConflictFiles []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("rebase of %q stopped with conflicts in %d file(s)", e.Branch, len(e.ConflictFiles))
}

// RebaseFailedError is returned by Rebase when it fails for a reason other
// than a merge conflict (e.g. a pre-rebase hook rejecting the operation).
type RebaseFailedError struct {
	Branch string
	Output string
	Cause  error
}

func (e *RebaseFailedError) Error() string {
	return fmt.Sprintf("rebase of %q failed: %s", e.Branch, e.Output)
}

func (e *RebaseFailedError) Unwrap() error { return e.Cause }

// PushRejectedError is returned by ForcePushWithLease when the remote tip
// moved since it was last observed (the lease no longer matches).
type PushRejectedError struct {
	Branch string
	Output string
}

func (e *PushRejectedError) Error() string {
	return fmt.Sprintf("push of %q rejected (remote has new commits): %s", e.Branch, e.Output)
}
