// Package git wraps a local clone with the handful of plumbing operations
// the stack engine needs: branch CRUD, ancestry queries, rebase control, and
// force-push-with-lease. go-git opens (or discovers) the repository and
// resolves the remote HEAD reference; every other query, and everything that
// mutates the working tree or the object database, shells out to the real
// git binary.
package git

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	giturls "github.com/chainguard-dev/git-urls"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

const DefaultRemoteName = "origin"

// Repo is a handle to a local Git repository.
//
// Repo is not safe for concurrent use from multiple goroutines: callers must
// serialize access (e.g. behind a sync.Mutex) and must never hold it across
// an await/select point, since every operation may shell out and block.
type Repo struct {
	dir    string
	gitDir string
	goGit  *git.Repository
	log    logrus.FieldLogger
	remote string
}

// Open opens an existing repository rooted at dir.
func Open(dir string) (*Repo, error) {
	return open(dir, false)
}

// Discover walks upward from dir looking for a repository root, the way
// `git rev-parse --show-toplevel` does.
func Discover(dir string) (*Repo, error) {
	return open(dir, true)
}

func open(dir string, discover bool) (*Repo, error) {
	goGit, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          discover,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, &RepositoryNotFoundError{Path: dir, Cause: err}
	}
	wt, err := goGit.Worktree()
	gitDir := filepath.Join(dir, ".git")
	if err == nil {
		gitDir = filepath.Join(wt.Filesystem.Root(), ".git")
	}
	return &Repo{
		dir:    dir,
		gitDir: gitDir,
		goGit:  goGit,
		log:    logrus.WithField("repo", filepath.Base(dir)),
	}, nil
}

// Dir is the repository's working tree root.
func (r *Repo) Dir() string { return r.dir }

// GitDir is the repository's `.git` control directory.
func (r *Repo) GitDir() string { return r.gitDir }

// PrivateDir is this application's private subdirectory under GitDir, used
// for the stack metadata document.
func (r *Repo) PrivateDir() string {
	dir := filepath.Join(r.GitDir(), "maguffin")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func (r *Repo) GoGitRepo() *git.Repository { return r.goGit }

func (r *Repo) SetRemoteName(name string) { r.remote = name }

func (r *Repo) RemoteName() string {
	if r.remote != "" {
		return r.remote
	}
	return DefaultRemoteName
}

// Git runs a git subcommand and returns its trimmed stdout.
func (r *Repo) Git(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.Output()
	log := r.log.WithField("duration", time.Since(start))
	if err != nil {
		var exitErr *exec.ExitError
		stderr := "<no output>"
		if errors.As(err, &exitErr) {
			stderr = string(exitErr.Stderr)
		}
		log.WithField("args", args).Debugf("git command failed: %s: %s", err, stderr)
		return strings.TrimSpace(string(out)), &RunError{Args: args, Stderr: []byte(stderr), Cause: err}
	}
	log.WithField("args", args).Debug("git command succeeded")
	return strings.TrimSpace(string(out)), nil
}

// GitOutput runs a git subcommand and returns its full stdout/stderr,
// never failing solely because the process exited non-zero; callers inspect
// Output.ExitCode themselves (used for commands like `rebase` whose
// meaningful failure mode is a conflict, not a Go error).
func (r *Repo) GitOutput(ctx context.Context, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	stdout, err := cmd.Output()
	out := &Output{Stdout: stdout}
	var exitErr *exec.ExitError
	if err != nil {
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "git %v", args)
		}
		out.Stderr = exitErr.Stderr
		out.ExitCode = exitErr.ExitCode()
	}
	return out, nil
}

// gitOutputWithEnv is like GitOutput but augments the child process
// environment, used by ContinueRebase to suppress the interactive commit
// editor.
func (r *Repo) gitOutputWithEnv(ctx context.Context, env []string, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), env...)
	stdout, err := cmd.Output()
	out := &Output{Stdout: stdout}
	var exitErr *exec.ExitError
	if err != nil {
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "git %v", args)
		}
		out.Stderr = exitErr.Stderr
		out.ExitCode = exitErr.ExitCode()
	}
	return out, nil
}

type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (o *Output) StderrString() string { return string(o.Stderr) }

// Origin returns the parsed URL and owner/repo slug of the origin remote.
func (r *Repo) Origin(ctx context.Context) (*Origin, error) {
	out, err := r.Git(ctx, "remote", "get-url", r.RemoteName())
	if err != nil {
		if StderrContains(err, "No such remote") {
			return nil, ErrRemoteNotFound
		}
		return nil, err
	}
	u, err := giturls.Parse(out)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to parse origin url %q", out)
	}
	slug := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")
	return &Origin{URL: u, RepoSlug: slug}, nil
}

type Origin struct {
	URL      *url.URL
	RepoSlug string
}

var ErrRemoteNotFound = errors.Sentinel("this repository doesn't have a remote named origin")

// DefaultBranch tries the local names "main", "master" in order, then falls
// back to the origin's HEAD symbolic reference.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	for _, candidate := range []string{"main", "master"} {
		ok, err := r.BranchExists(ctx, candidate)
		if err == nil && ok {
			return candidate, nil
		}
	}

	ref, err := r.goGit.Reference(plumbing.NewRemoteHEADReferenceName(r.RemoteName()), false)
	if err != nil {
		r.log.WithError(err).Debug("failed to resolve remote HEAD")
		return "", &BranchError{Msg: "Could not determine default branch"}
	}
	prefix := fmt.Sprintf("refs/remotes/%s/", r.RemoteName())
	return strings.TrimPrefix(ref.Target().String(), prefix), nil
}

func StderrContains(err error, substr string) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return strings.Contains(string(runErr.Stderr), substr)
	}
	return false
}

func ShortSha(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
