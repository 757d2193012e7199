// Package gittest builds throwaway Git repositories for tests: a real git
// init'd local clone plus a bare "remote" next to it, the way the engine's
// own tests need an actual push/fetch target instead of a mock.
package gittest

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	ggit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
)

// NewTempRepo initializes a local repository with an "origin" remote
// pointing at a bare repository, both under t.TempDir().
func NewTempRepo(t *testing.T) *GitTestRepo {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "local")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	remoteDir := filepath.Join(t.TempDir(), "remote")
	require.NoError(t, os.MkdirAll(remoteDir, 0o755))

	runGit(t, dir, "init", "--initial-branch=main")
	runGit(t, remoteDir, "init", "--bare")

	goGit, err := ggit.PlainOpen(dir)
	require.NoError(t, err, "failed to open git repository")

	repo := &GitTestRepo{RepoDir: dir, GitDir: filepath.Join(dir, ".git"), GoGit: goGit}

	repo.Git(t, "config", "user.name", "test")
	repo.Git(t, "config", "user.email", "test@nonexistent")
	repo.Git(t, "remote", "add", "origin", remoteDir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	repo.Git(t, "add", "README.md")
	repo.Git(t, "commit", "-m", "initial commit")
	repo.Git(t, "push", "-u", "origin", "main")

	return repo
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(t.Context(), "git", args...)
	cmd.Dir = dir
	require.NoError(t, cmd.Run(), "git %v", args)
}

type GitTestRepo struct {
	RepoDir string
	GitDir  string
	GoGit   *ggit.Repository
}

// AsRepo opens this test fixture using the engine's own Repo type.
func (r *GitTestRepo) AsRepo(t *testing.T) *git.Repo {
	t.Helper()
	repo, err := git.Open(r.RepoDir)
	require.NoError(t, err, "failed to open repo")
	return repo
}

func (r *GitTestRepo) Git(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(t.Context(), "git", args...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = r.RepoDir
	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		t.Fatal(err)
	}
	t.Logf("git %v\nstdout: %s\nstderr: %s", args, stdout.String(), stderr.String())
	return stdout.String()
}

func (r *GitTestRepo) CreateFile(t *testing.T, filename string, body string) string {
	t.Helper()
	fp := filepath.Join(r.RepoDir, filename)
	require.NoError(t, os.WriteFile(fp, []byte(body), 0o644), "failed to write file: %s", filename)
	return fp
}

func (r *GitTestRepo) CommitFile(t *testing.T, filename string, body string) plumbing.Hash {
	t.Helper()
	fp := r.CreateFile(t, filename, body)
	r.Git(t, "add", fp)
	r.Git(t, "commit", "-m", "write "+filename)
	head, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	return head.Hash()
}

func (r *GitTestRepo) IsWorkdirClean(t *testing.T) bool {
	t.Helper()
	return r.Git(t, "status", "--porcelain") == ""
}

func (r *GitTestRepo) CurrentBranch(t *testing.T) plumbing.ReferenceName {
	t.Helper()
	head, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	return head.Name()
}

func (r *GitTestRepo) GetCommitAtRef(t *testing.T, name plumbing.ReferenceName) plumbing.Hash {
	t.Helper()
	ref, err := r.GoGit.Reference(name, true)
	require.NoError(t, err, "failed to get ref %q", name)
	return ref.Hash()
}

func (r *GitTestRepo) CreateRef(t *testing.T, ref plumbing.ReferenceName) {
	t.Helper()
	head, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	require.NoError(t, r.GoGit.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())))
}

func (r *GitTestRepo) CheckoutBranch(t *testing.T, branch plumbing.ReferenceName) plumbing.ReferenceName {
	t.Helper()
	original := r.CurrentBranch(t)
	wt, err := r.GoGit.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, wt.Checkout(&ggit.CheckoutOptions{Branch: branch}))
	return original
}

func (r *GitTestRepo) GetCommits(t *testing.T, from, excluding plumbing.ReferenceName) []plumbing.Hash {
	t.Helper()
	fromHash := r.GetCommitAtRef(t, from)
	excludedHash := r.GetCommitAtRef(t, excluding)

	commit, err := r.GoGit.CommitObject(fromHash)
	require.NoError(t, err, "failed to get commit at %q", from)

	var commits []plumbing.Hash
	iter := object.NewCommitPreorderIter(commit, nil, []plumbing.Hash{excludedHash})
	require.NoError(t, iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c.Hash)
		return nil
	}))
	return commits
}
