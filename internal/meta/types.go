// Package meta models the stack forest and its on-disk representation: a
// single versioned JSON document living under the repository's private
// directory.
package meta

import "time"

// BranchStatus is the reconciled state of a StackBranch relative to Git
// reality.
type BranchStatus string

const (
	StatusUpToDate   BranchStatus = "up_to_date"
	StatusNeedsRebase BranchStatus = "needs_rebase"
	StatusConflicted BranchStatus = "conflicted"
	StatusOrphaned   BranchStatus = "orphaned"
	StatusUnknown    BranchStatus = "unknown"
)

// StackBranch is one node of a Stack's forest.
type StackBranch struct {
	Name      string       `json:"name"`
	Parent    string       `json:"parent"`
	PRNumber  *int64       `json:"pr_number,omitempty"`
	Status    BranchStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	HeadSHA   string       `json:"head_sha,omitempty"`
	// OrphanedAt records when a reconcile pass first found this branch's
	// Git ref gone. A branch still orphaned on a later pass, once
	// OrphanGracePeriod has elapsed since then, is removed rather than
	// re-marked.
	OrphanedAt *time.Time `json:"orphaned_at,omitempty"`
}

// Stack is a rooted forest of local branches, keyed by an opaque id.
type Stack struct {
	ID        string                 `json:"id"`
	Root      string                 `json:"root"`
	Branches  map[string]StackBranch `json:"branches"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// StackMetadata is the document persisted at
// <repo-private-dir>/stack-metadata.json.
type StackMetadata struct {
	Version  int        `json:"version"`
	Stacks   []Stack    `json:"stacks"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// CurrentVersion is the only StackMetadata.Version this engine understands.
// Documents with any other version are treated as absent (see Store.Load).
const CurrentVersion = 1

// Default returns a fresh, empty document at CurrentVersion.
func Default() *StackMetadata {
	return &StackMetadata{Version: CurrentVersion}
}

// ReviewDecision mirrors a pull request's aggregate review state.
type ReviewDecision string

const (
	ReviewApproved         ReviewDecision = "approved"
	ReviewChangesRequested ReviewDecision = "changes_requested"
	ReviewRequired         ReviewDecision = "review_required"
)

type PRState string

const (
	PROpen   PRState = "open"
	PRClosed PRState = "closed"
	PRMerged PRState = "merged"
)

type MergeableState string

const (
	Mergeable   MergeableState = "mergeable"
	Conflicting MergeableState = "conflicting"
	MergeableUnknown MergeableState = "unknown"
)

// Author is the login+avatar pair the GraphQL surface returns for PR
// authors and reviewers.
type Author struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// PullRequest is the provider-neutral snapshot the Syncer caches and diffs.
type PullRequest struct {
	ID             string          `json:"id"`
	Number         int64           `json:"number"`
	Title          string          `json:"title"`
	Body           string          `json:"body,omitempty"`
	State          PRState         `json:"state"`
	Draft          bool            `json:"draft"`
	Author         Author          `json:"author"`
	HeadRefName    string          `json:"head_ref_name"`
	BaseRefName    string          `json:"base_ref_name"`
	Labels         []string        `json:"labels,omitempty"`
	ReviewDecision *ReviewDecision `json:"review_decision,omitempty"`
	Mergeable      MergeableState  `json:"mergeable"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Commits        int             `json:"commits"`
	Additions      int             `json:"additions"`
	Deletions      int             `json:"deletions"`
	ChangedFiles   int             `json:"changed_files"`
	Permalink      string          `json:"permalink,omitempty"`
}

// PullRequestCommit is one entry of a PullRequestDetail's commit list.
type PullRequestCommit struct {
	OID     string `json:"oid"`
	Message string `json:"message"`
}

// PullRequestFile is one entry of a PullRequestDetail's changed-file list.
type PullRequestFile struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Review is one submitted review on a pull request.
type Review struct {
	Author Author         `json:"author"`
	State  ReviewDecision `json:"state"`
	Body   string         `json:"body,omitempty"`
}

// PullRequestDetail is the full view fetched on demand (get, not list).
type PullRequestDetail struct {
	PullRequest
	Commits         []PullRequestCommit `json:"commits"`
	Files           []PullRequestFile   `json:"files"`
	Reviews         []Review            `json:"reviews"`
	ReviewRequests  []Author            `json:"review_requests"`
}

// RestackAction is the operation a RestackStep describes.
type RestackAction string

const (
	ActionSkipUpToDate RestackAction = "skip_up_to_date"
	ActionRebase       RestackAction = "rebase"
	ActionForcePush    RestackAction = "force_push"
)

// RestackStep is one entry of a RestackPlan.
type RestackStep struct {
	Branch          string        `json:"branch"`
	Parent          string        `json:"parent"`
	Action          RestackAction `json:"action"`
	CommitsToReplay []string      `json:"commits_to_replay,omitempty"`
}

// RestackPlan is the ordered, read-only output of PreviewRestack.
type RestackPlan struct {
	StackID string        `json:"stack_id"`
	Steps   []RestackStep `json:"steps"`
}

type RestackStatus string

const (
	RestackSuccess   RestackStatus = "success"
	RestackConflicts RestackStatus = "conflicts"
	RestackFailed    RestackStatus = "failed"
)

// ConflictedBranch names a branch that stopped a restack walk with unmerged
// paths.
type ConflictedBranch struct {
	Branch string   `json:"branch"`
	Files  []string `json:"files"`
}

// RestackResult is the outcome of Restack/ContinueRestack.
type RestackResult struct {
	Status     RestackStatus      `json:"status"`
	Restacked  []string           `json:"restacked"`
	Conflicts  []ConflictedBranch `json:"conflicts,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Warning flags a branch whose reconciled state needs the user's attention
// even though it isn't (yet) orphaned.
type Warning string

const (
	WarningParentNotAncestor  Warning = "parent_not_ancestor"
	WarningExternallyModified Warning = "externally_modified"
	WarningParentDeleted      Warning = "parent_deleted"
)

// ReconcileWarning pairs a Warning with the branch it was raised for.
type ReconcileWarning struct {
	Branch  string  `json:"branch"`
	Warning Warning `json:"warning"`
}

// ReconcileReport is the outcome of a reconcile pass: every branch found
// orphaned (including ones just removed for having stayed orphaned past
// OrphanGracePeriod) and every warning raised along the way.
type ReconcileReport struct {
	Orphaned []string           `json:"orphaned"`
	Warnings []ReconcileWarning `json:"warnings"`
}

// RateLimitState tracks the provider's request budget as observed from
// response headers.
type RateLimitState struct {
	Remaining        int       `json:"remaining"`
	Limit            int       `json:"limit"`
	ResetsAt         time.Time `json:"resets_at"`
	ConsecutiveHits  int       `json:"consecutive_hits"`
}

// SyncStatusKind discriminates the SyncStatus sum type.
type SyncStatusKind string

const (
	SyncIdle        SyncStatusKind = "idle"
	SyncInProgress  SyncStatusKind = "in_progress"
	SyncFailed      SyncStatusKind = "failed"
	SyncRateLimited SyncStatusKind = "rate_limited"
)

// SyncStatus is a tagged union over the Syncer's four possible states; only
// the fields relevant to Kind are populated.
type SyncStatus struct {
	Kind         SyncStatusKind `json:"kind"`
	LastSync     *time.Time     `json:"last_sync,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CurrentTask  string         `json:"current_task,omitempty"`
	Error        string         `json:"error,omitempty"`
	FailedAt     *time.Time     `json:"failed_at,omitempty"`
	FailureCount int            `json:"failure_count,omitempty"`
	ResetsAt     *time.Time     `json:"resets_at,omitempty"`
}

// SyncChangeKind discriminates the SyncChange sum type.
type SyncChangeKind string

const (
	ChangePRCreated       SyncChangeKind = "pr_created"
	ChangePRUpdated       SyncChangeKind = "pr_updated"
	ChangePRClosed        SyncChangeKind = "pr_closed"
	ChangePRReviewChanged SyncChangeKind = "pr_review_changed"
)

// SyncChange is one entry of the diff a sync cycle emits between the
// previous and current cached pull-request lists; only the fields relevant
// to Kind are populated.
type SyncChange struct {
	Kind      SyncChangeKind  `json:"kind"`
	Number    int64           `json:"number"`
	Title     string          `json:"title,omitempty"`
	Merged    bool            `json:"merged,omitempty"`
	NewStatus *ReviewDecision `json:"new_status,omitempty"`
}

// SyncStats accumulates counters across a Syncer's lifetime, reset only by
// process restart.
type SyncStats struct {
	TotalSyncs        int     `json:"total_syncs"`
	SuccessfulSyncs   int     `json:"successful_syncs"`
	FailedSyncs       int     `json:"failed_syncs"`
	APIRequests       int     `json:"api_requests"`
	AvgSyncDurationMs float64 `json:"avg_sync_duration_ms"`
}
