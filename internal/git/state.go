package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// IsRebaseInProgress reports whether Git itself has an interrupted rebase
// parked in .git/rebase-merge or .git/rebase-apply.
func (r *Repo) IsRebaseInProgress(ctx context.Context) (bool, error) {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(r.GitDir(), dir)); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// RebaseState summarizes Git's own on-disk rebase state, read directly from
// .git/rebase-merge (or .git/rebase-apply for the non-interactive backend).
type RebaseState struct {
	InProgress bool
	Onto       string
	HeadName   string
}

// GetRebaseState reads Git's own rebase-in-progress bookkeeping files.
func (r *Repo) GetRebaseState(ctx context.Context) (*RebaseState, error) {
	inProgress, err := r.IsRebaseInProgress(ctx)
	if err != nil || !inProgress {
		return &RebaseState{}, err
	}

	dir := filepath.Join(r.GitDir(), "rebase-merge")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = filepath.Join(r.GitDir(), "rebase-apply")
	}

	state := &RebaseState{InProgress: true}
	if bs, err := os.ReadFile(filepath.Join(dir, "onto")); err == nil {
		state.Onto = strings.TrimSpace(string(bs))
	}
	if bs, err := os.ReadFile(filepath.Join(dir, "head-name")); err == nil {
		state.HeadName = strings.TrimPrefix(strings.TrimSpace(string(bs)), "refs/heads/")
	}
	return state, nil
}

// GetConflictFiles lists the working tree's currently unmerged paths.
func (r *Repo) GetConflictFiles(ctx context.Context) ([]string, error) {
	out, err := r.Git(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		var runErr *RunError
		if errors.As(err, &runErr) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
