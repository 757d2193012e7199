package git

import (
	"context"
	"strings"
)

// Rebase replays branch's commits onto onto. If the rebase stops with
// unmerged paths, it returns *ConflictError (not a plain error) so callers
// can park the branch instead of aborting. Any other non-zero exit is
// reported as *RebaseFailedError.
func (r *Repo) Rebase(ctx context.Context, branch, onto string) error {
	out, err := r.GitOutput(ctx, "rebase", "--onto", onto, onto, branch)
	if err != nil {
		return err
	}
	if out.ExitCode == 0 {
		return nil
	}

	inProgress, stateErr := r.IsRebaseInProgress(ctx)
	if stateErr == nil && inProgress {
		files, _ := r.GetConflictFiles(ctx)
		return &ConflictError{Branch: branch, ConflictFiles: files}
	}
	return &RebaseFailedError{Branch: branch, Output: out.StderrString()}
}

// ContinueRebase resumes an in-progress rebase after conflicts have been
// resolved and staged. GIT_EDITOR is forced to a no-op so it never blocks on
// an interactive commit-message prompt.
func (r *Repo) ContinueRebase(ctx context.Context) error {
	out, err := r.gitOutputWithEnv(ctx, []string{"GIT_EDITOR=true"}, "rebase", "--continue")
	if err != nil {
		return err
	}
	if out.ExitCode == 0 {
		return nil
	}
	inProgress, stateErr := r.IsRebaseInProgress(ctx)
	if stateErr == nil && inProgress {
		files, _ := r.GetConflictFiles(ctx)
		return &ConflictError{ConflictFiles: files}
	}
	return &RebaseFailedError{Output: out.StderrString()}
}

// AbortRebase cancels an in-progress rebase and restores the branch to its
// pre-rebase state. It is a no-op (not an error) if no rebase is in
// progress.
func (r *Repo) AbortRebase(ctx context.Context) error {
	out, err := r.GitOutput(ctx, "rebase", "--abort")
	if err != nil {
		return err
	}
	if out.ExitCode != 0 && !strings.Contains(out.StderrString(), "No rebase in progress") {
		return &RebaseFailedError{Output: out.StderrString()}
	}
	return nil
}
