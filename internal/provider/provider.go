// Package provider defines the capability interfaces a Git hosting backend
// must satisfy: authentication, pull-request operations, and repository
// metadata. GitHub is the only binding wired up today (internal/github +
// internal/providerclient); GitLab, Bitbucket, and Azure DevOps plug in
// later without touching StackEngine or Syncer, which depend only on these
// interfaces.
package provider

import (
	"context"
	"time"

	"maguffin.dev/stackengine/internal/meta"
)

// Type identifies a Git hosting provider.
type Type string

const (
	TypeGitHub      Type = "github"
	TypeGitLab      Type = "gitlab"
	TypeBitbucket   Type = "bitbucket"
	TypeAzureDevOps Type = "azure_devops"
)

func (t Type) String() string { return string(t) }

// Config describes how to reach a provider instance.
type Config struct {
	Type    Type
	APIURL  string
	WebURL  string
	ClientID string
}

// DeviceFlowPending is the result of starting a device authorization flow.
type DeviceFlowPending struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresAt       time.Time
	Interval        time.Duration
}

// AuthStateKind discriminates AuthState.
type AuthStateKind string

const (
	AuthUnauthenticated AuthStateKind = "unauthenticated"
	AuthPending         AuthStateKind = "pending"
	AuthAuthenticated   AuthStateKind = "authenticated"
)

// AuthState is the 3-state device-flow machine's current state, a tagged
// union over AuthStateKind.
type AuthState struct {
	Kind     AuthStateKind
	Pending  *DeviceFlowPending
	Login    string
	Name     string
	Email    string
	Token    string
}

// AuthProvider implements a provider's device authentication flow.
type AuthProvider interface {
	StartAuth(ctx context.Context) (*DeviceFlowPending, error)
	PollAuth(ctx context.Context, deviceCode string) (*AuthState, error)
	RestoreAuth(ctx context.Context) (*AuthState, error)
	Logout(ctx context.Context) error
}

// PullRequestProvider implements pull-request read/write operations.
type PullRequestProvider interface {
	ListPullRequests(ctx context.Context, owner, repo string, baseBranch string, cursor string) (page []meta.PullRequest, nextCursor string, hasMore bool, err error)
	GetPullRequest(ctx context.Context, owner, repo string, number int64) (*meta.PullRequestDetail, error)
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string, draft bool) (int64, error)
	MergePullRequest(ctx context.Context, owner, repo, prID string, method MergeMethod) error
	ClosePullRequest(ctx context.Context, owner, repo, prID string) error
	UpdatePullRequestBase(ctx context.Context, owner, repo, prID, newBase string) error
}

// RepositoryProvider implements repository metadata lookups.
type RepositoryProvider interface {
	GetRepositoryID(ctx context.Context, owner, repo string) (string, error)
	GetDefaultBranch(ctx context.Context, owner, repo string) (string, error)
}

// Provider composes all three capability interfaces. Any type implementing
// AuthProvider, PullRequestProvider, and RepositoryProvider satisfies it.
type Provider interface {
	AuthProvider
	PullRequestProvider
	RepositoryProvider
}

// MergeMethod is one of the three merge strategies a provider supports.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)
