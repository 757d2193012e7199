// Package github is the GitHub binding of the provider capability
// interfaces: it implements provider.PullRequestProvider and
// provider.RepositoryProvider over githubv4 against the provider-neutral
// domain types in internal/meta.
package github

import (
	"context"
	"sync"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/providerclient"
	"maguffin.dev/stackengine/internal/utils/maputils"
)

const pageSize = 50

// Client is the GitHub binding backing provider.PullRequestProvider and
// provider.RepositoryProvider, built on a shared providerclient.Client.
type Client struct {
	transport *providerclient.Client

	repoIDMu sync.Mutex
	repoIDs  map[string]string // "owner/repo" -> node id, cached for the process lifetime
}

// NewClient wraps a providerclient.Client transport already authenticated
// with a GitHub bearer token.
func NewClient(transport *providerclient.Client) *Client {
	return &Client{transport: transport, repoIDs: map[string]string{}}
}

// RateLimitState exposes the transport's most recently observed rate-limit
// snapshot, so a Syncer can decide whether to skip a cycle.
func (c *Client) RateLimitState() meta.RateLimitState { return c.transport.RateLimitState() }

// CachedRepositoryIDs returns a snapshot of the "owner/repo" -> node id
// cache, for diagnostics. The returned map is a copy: callers may not
// mutate c's internal cache through it.
func (c *Client) CachedRepositoryIDs() map[string]string {
	c.repoIDMu.Lock()
	defer c.repoIDMu.Unlock()
	return maputils.Copy(c.repoIDs)
}

func (c *Client) query(ctx context.Context, q any, vars map[string]any) error {
	return c.transport.Query(ctx, q, vars)
}

func (c *Client) mutate(ctx context.Context, m any, vars map[string]any) error {
	return c.transport.Mutate(ctx, m, vars)
}

func slug(owner, repo string) string { return owner + "/" + repo }
