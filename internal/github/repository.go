package github

import (
	"context"

	"emperror.dev/errors"
	"github.com/shurcooL/githubv4"

	"maguffin.dev/stackengine/internal/provider"
)

type repositoryQuery struct {
	Repository struct {
		ID               string
		DefaultBranchRef struct {
			Name string
		}
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// repositoryNodeID resolves and caches a repository's GraphQL node id for
// the life of the process (a separate query caches it
// per (owner, repo) for the life of the process").
func (c *Client) repositoryNodeID(ctx context.Context, owner, repo string) (string, string, error) {
	key := slug(owner, repo)

	c.repoIDMu.Lock()
	if id, ok := c.repoIDs[key]; ok {
		c.repoIDMu.Unlock()
		return id, "", nil
	}
	c.repoIDMu.Unlock()

	var q repositoryQuery
	if err := c.query(ctx, &q, map[string]any{
		"owner": githubv4.String(owner),
		"repo":  githubv4.String(repo),
	}); err != nil {
		return "", "", errors.WrapIff(err, "failed to resolve repository id for %s", key)
	}
	if q.Repository.ID == "" {
		return "", "", &provider.NotFoundError{Kind: "repository", ID: key}
	}

	id := q.Repository.ID
	c.repoIDMu.Lock()
	c.repoIDs[key] = id
	c.repoIDMu.Unlock()

	return id, q.Repository.DefaultBranchRef.Name, nil
}

// GetRepositoryID implements provider.RepositoryProvider.
func (c *Client) GetRepositoryID(ctx context.Context, owner, repo string) (string, error) {
	id, _, err := c.repositoryNodeID(ctx, owner, repo)
	return id, err
}

// GetDefaultBranch implements provider.RepositoryProvider.
func (c *Client) GetDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var q repositoryQuery
	if err := c.query(ctx, &q, map[string]any{
		"owner": githubv4.String(owner),
		"repo":  githubv4.String(repo),
	}); err != nil {
		return "", errors.WrapIff(err, "failed to resolve default branch for %s", slug(owner, repo))
	}
	if q.Repository.ID == "" {
		return "", &provider.NotFoundError{Kind: "repository", ID: slug(owner, repo)}
	}
	return q.Repository.DefaultBranchRef.Name, nil
}
