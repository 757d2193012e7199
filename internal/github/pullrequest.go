package github

import (
	"context"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/provider"
)

type ghAuthor struct {
	Login     string
	AvatarUrl string
}

type ghLabel struct{ Name string }

type ghPullRequestNode struct {
	ID             string
	Number         int64
	Title          string
	Body           string
	State          githubv4.PullRequestState
	IsDraft        bool
	CreatedAt      githubv4.DateTime
	UpdatedAt      githubv4.DateTime
	Author         ghAuthor
	Labels         struct{ Nodes []ghLabel } `graphql:"labels(first: 10)"`
	ReviewDecision githubv4.PullRequestReviewDecision
	HeadRefName    string
	BaseRefName    string
	Mergeable      githubv4.MergeableState
	Commits        struct{ TotalCount int } `graphql:"commits"`
	Additions      int
	Deletions      int
	ChangedFiles   int
	Permalink      githubv4.URI
}

type listPullRequestsQuery struct {
	Repository struct {
		PullRequests struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   string
			}
			Nodes []ghPullRequestNode
		} `graphql:"pullRequests(baseRefName: $baseRefName, states: [OPEN], first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// ListPullRequests implements provider.PullRequestProvider, paginating in
// pages of pageSize ordered by UPDATED_AT desc.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, baseBranch, cursor string) ([]meta.PullRequest, string, bool, error) {
	vars := map[string]any{
		"owner":       githubv4.String(owner),
		"repo":        githubv4.String(repo),
		"first":       githubv4.Int(pageSize),
		"baseRefName": (*githubv4.String)(nil),
		"after":       (*githubv4.String)(nil),
	}
	if baseBranch != "" {
		vars["baseRefName"] = githubv4.NewString(githubv4.String(baseBranch))
	}
	if cursor != "" {
		vars["after"] = githubv4.NewString(githubv4.String(cursor))
	}

	var q listPullRequestsQuery
	if err := c.query(ctx, &q, vars); err != nil {
		return nil, "", false, errors.WrapIff(err, "failed to list pull requests for %s", slug(owner, repo))
	}

	page := make([]meta.PullRequest, 0, len(q.Repository.PullRequests.Nodes))
	for _, n := range q.Repository.PullRequests.Nodes {
		page = append(page, convertPullRequest(n))
	}
	return page, q.Repository.PullRequests.PageInfo.EndCursor, q.Repository.PullRequests.PageInfo.HasNextPage, nil
}

type getPullRequestQuery struct {
	Repository struct {
		PullRequest struct {
			ghPullRequestNode
			Commits struct {
				Nodes []struct {
					Commit struct {
						Oid     string
						Message string
					}
				}
			} `graphql:"commits(first: 100)"`
			Files struct {
				Nodes []struct {
					Path      string
					Additions int
					Deletions int
				}
			} `graphql:"files(first: 100)"`
			Reviews struct {
				Nodes []struct {
					Author ghAuthor
					State  githubv4.PullRequestReviewState
					Body   string
				}
			} `graphql:"reviews(first: 50)"`
			ReviewRequests struct {
				Nodes []struct {
					RequestedReviewer struct {
						User struct{ Login string } `graphql:"... on User"`
					}
				}
			} `graphql:"reviewRequests(first: 10)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// GetPullRequest implements provider.PullRequestProvider.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int64) (*meta.PullRequestDetail, error) {
	var q getPullRequestQuery
	if err := c.query(ctx, &q, map[string]any{
		"owner":  githubv4.String(owner),
		"repo":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}); err != nil {
		return nil, errors.WrapIff(err, "failed to get pull request #%d for %s", number, slug(owner, repo))
	}
	if q.Repository.PullRequest.ID == "" {
		return nil, &provider.NotFoundError{Kind: "pull_request", ID: slug(owner, repo) + "#" + strconv.FormatInt(number, 10)}
	}

	pr := q.Repository.PullRequest
	detail := &meta.PullRequestDetail{PullRequest: convertPullRequest(pr.ghPullRequestNode)}
	for _, n := range pr.Commits.Nodes {
		detail.Commits = append(detail.Commits, meta.PullRequestCommit{OID: n.Commit.Oid, Message: n.Commit.Message})
	}
	for _, n := range pr.Files.Nodes {
		detail.Files = append(detail.Files, meta.PullRequestFile{Path: n.Path, Additions: n.Additions, Deletions: n.Deletions})
	}
	for _, n := range pr.Reviews.Nodes {
		detail.Reviews = append(detail.Reviews, meta.Review{
			Author: meta.Author{Login: n.Author.Login, AvatarURL: n.Author.AvatarUrl},
			State:  convertReviewState(n.State),
			Body:   n.Body,
		})
	}
	for _, n := range pr.ReviewRequests.Nodes {
		if n.RequestedReviewer.User.Login != "" {
			detail.ReviewRequests = append(detail.ReviewRequests, meta.Author{Login: n.RequestedReviewer.User.Login})
		}
	}
	return detail, nil
}

type createPullRequestMutation struct {
	CreatePullRequest struct {
		PullRequest struct {
			Number int64
		}
	} `graphql:"createPullRequest(input: $input)"`
}

// CreatePullRequest implements provider.PullRequestProvider.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string, draft bool) (int64, error) {
	repoID, _, err := c.repositoryNodeID(ctx, owner, repo)
	if err != nil {
		return 0, err
	}

	input := githubv4.CreatePullRequestInput{
		RepositoryID: githubv4.ID(repoID),
		BaseRefName:  githubv4.String(base),
		HeadRefName:  githubv4.String(head),
		Title:        githubv4.String(title),
		Body:         githubv4.NewString(githubv4.String(body)),
		Draft:        githubv4.NewBoolean(githubv4.Boolean(draft)),
	}

	var m createPullRequestMutation
	if err := c.mutate(ctx, &m, map[string]any{"input": input}); err != nil {
		return 0, errors.Wrap(err, "failed to create pull request")
	}
	return m.CreatePullRequest.PullRequest.Number, nil
}

type mergePullRequestMutation struct {
	MergePullRequest struct {
		PullRequest struct{ Merged bool }
	} `graphql:"mergePullRequest(input: $input)"`
}

// MergePullRequest implements provider.PullRequestProvider.
func (c *Client) MergePullRequest(ctx context.Context, owner, repo, prID string, method provider.MergeMethod) error {
	input := githubv4.MergePullRequestInput{PullRequestID: githubv4.ID(prID)}
	switch method {
	case provider.MergeMethodSquash:
		m := githubv4.PullRequestMergeMethodSquash
		input.MergeMethod = &m
	case provider.MergeMethodRebase:
		m := githubv4.PullRequestMergeMethodRebase
		input.MergeMethod = &m
	default:
		m := githubv4.PullRequestMergeMethodMerge
		input.MergeMethod = &m
	}

	var m mergePullRequestMutation
	if err := c.mutate(ctx, &m, map[string]any{"input": input}); err != nil {
		return errors.WrapIff(err, "failed to merge pull request %s", prID)
	}
	if !m.MergePullRequest.PullRequest.Merged {
		return errors.Errorf("merge reported as unsuccessful for pull request %s", prID)
	}
	return nil
}

type closePullRequestMutation struct {
	ClosePullRequest struct {
		PullRequest struct{ State githubv4.PullRequestState }
	} `graphql:"closePullRequest(input: $input)"`
}

// ClosePullRequest implements provider.PullRequestProvider.
func (c *Client) ClosePullRequest(ctx context.Context, owner, repo, prID string) error {
	input := githubv4.ClosePullRequestInput{PullRequestID: githubv4.ID(prID)}
	var m closePullRequestMutation
	if err := c.mutate(ctx, &m, map[string]any{"input": input}); err != nil {
		return errors.WrapIff(err, "failed to close pull request %s", prID)
	}
	return nil
}

type updatePullRequestMutation struct {
	UpdatePullRequest struct {
		PullRequest struct{ BaseRefName string }
	} `graphql:"updatePullRequest(input: $input)"`
}

// UpdatePullRequestBase implements provider.PullRequestProvider. It uses
// updatePullRequest's baseRefName field, the GitHub mutation that actually
// retargets a pull request's base branch (not updatePullRequestBranch, which
// instead updates the head ref to the latest base — a different operation).
func (c *Client) UpdatePullRequestBase(ctx context.Context, owner, repo, prID, newBase string) error {
	input := githubv4.UpdatePullRequestInput{
		PullRequestID: githubv4.ID(prID),
		BaseRefName:   githubv4.NewString(githubv4.String(newBase)),
	}
	var m updatePullRequestMutation
	if err := c.mutate(ctx, &m, map[string]any{"input": input}); err != nil {
		return errors.WrapIff(err, "failed to retarget pull request %s to %s", prID, newBase)
	}
	return nil
}

func convertPullRequest(n ghPullRequestNode) meta.PullRequest {
	labels := make([]string, 0, len(n.Labels.Nodes))
	for _, l := range n.Labels.Nodes {
		labels = append(labels, l.Name)
	}

	pr := meta.PullRequest{
		ID:           n.ID,
		Number:       n.Number,
		Title:        n.Title,
		Body:         n.Body,
		State:        convertState(n.State),
		Draft:        n.IsDraft,
		Author:       meta.Author{Login: n.Author.Login, AvatarURL: n.Author.AvatarUrl},
		HeadRefName:  n.HeadRefName,
		BaseRefName:  n.BaseRefName,
		Labels:       labels,
		Mergeable:    convertMergeable(n.Mergeable),
		CreatedAt:    parseTimestamp(n.CreatedAt),
		UpdatedAt:    parseTimestamp(n.UpdatedAt),
		Commits:      n.Commits.TotalCount,
		Additions:    n.Additions,
		Deletions:    n.Deletions,
		ChangedFiles: n.ChangedFiles,
		Permalink:    n.Permalink.String(),
	}
	if rd := convertReviewDecision(n.ReviewDecision); rd != "" {
		pr.ReviewDecision = &rd
	}
	return pr
}

// convertState maps GitHub's PullRequestState to the provider-neutral
// PRState, defaulting to the most conservative variant ("open") for any
// unrecognized value.
func convertState(s githubv4.PullRequestState) meta.PRState {
	switch s {
	case githubv4.PullRequestStateClosed:
		return meta.PRClosed
	case githubv4.PullRequestStateMerged:
		return meta.PRMerged
	case githubv4.PullRequestStateOpen:
		return meta.PROpen
	default:
		return meta.PROpen
	}
}

func convertMergeable(s githubv4.MergeableState) meta.MergeableState {
	switch s {
	case githubv4.MergeableStateMergeable:
		return meta.Mergeable
	case githubv4.MergeableStateConflicting:
		return meta.Conflicting
	default:
		return meta.MergeableUnknown
	}
}

func convertReviewDecision(d githubv4.PullRequestReviewDecision) meta.ReviewDecision {
	switch d {
	case githubv4.PullRequestReviewDecisionApproved:
		return meta.ReviewApproved
	case githubv4.PullRequestReviewDecisionChangesRequested:
		return meta.ReviewChangesRequested
	case githubv4.PullRequestReviewDecisionReviewRequired:
		return meta.ReviewRequired
	default:
		return meta.ReviewRequired
	}
}

func convertReviewState(s githubv4.PullRequestReviewState) meta.ReviewDecision {
	switch s {
	case githubv4.PullRequestReviewStateApproved:
		return meta.ReviewApproved
	case githubv4.PullRequestReviewStateChangesRequested:
		return meta.ReviewChangesRequested
	default:
		return meta.ReviewRequired
	}
}

// parseTimestamp unwraps a githubv4.DateTime, falling back to the current
// time with a logged warning on a zero value (the GraphQL layer already
// parses RFC-3339; this guards the decode-failure case, falling back to
// out explicitly).
func parseTimestamp(t githubv4.DateTime) time.Time {
	if t.IsZero() {
		logrus.Warn("pull request timestamp missing or unparsable, using current time")
		return time.Now().UTC()
	}
	return t.Time.UTC()
}
