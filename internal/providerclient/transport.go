// Package providerclient implements the rate-limit-aware HTTP/GraphQL
// transport shared by provider bindings: a bearer token under a lock, a
// custom http.RoundTripper that accounts x-ratelimit-* headers on every
// response, and a backoff/retry envelope for rate-limit responses, so any
// provider binding can sit on top of one shared transport instead of rolling
// its own bearer-token HTTP client.
package providerclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shurcooL/graphql"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/provider"
)

// Client carries a bearer token and a rate-limit-aware http.Client, and
// exposes a shurcooL/graphql client built on top of the same transport.
type Client struct {
	mu    sync.RWMutex
	token string

	httpClient *http.Client
	gql        *graphql.Client
	limiter    *rateLimiter
}

// New builds a Client against the given GraphQL endpoint, authenticated
// with a static bearer token. Call SetToken to rotate the token (e.g. after
// a device-flow refresh) without constructing a new Client.
func New(graphqlURL, token string) *Client {
	c := &Client{token: token, limiter: newRateLimiter()}
	rt := &rateLimitRoundTripper{
		base: &oauth2.Transport{
			Source: &dynamicTokenSource{read: c.tokenSource},
			Base:   http.DefaultTransport,
		},
		limiter: c.limiter,
	}
	c.httpClient = &http.Client{Transport: rt}
	c.gql = graphql.NewClient(graphqlURL, c.httpClient)
	return c
}

// SetToken rotates the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) tokenSource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HTTPClient exposes the underlying rate-limit-accounted http.Client for
// REST calls that don't go through GraphQL.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// RateLimitState returns the most recently observed rate-limit snapshot.
func (c *Client) RateLimitState() meta.RateLimitState { return c.limiter.snapshot() }

// dynamicTokenSource re-reads the bearer token on every request, rather than
// baking it in once at client construction. oauth2.Transport calls Token()
// per round trip (it is not wrapped in oauth2.ReuseTokenSource here), so
// SetToken takes effect on the very next request.
type dynamicTokenSource struct {
	read func() string
}

func (s *dynamicTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: s.read()}, nil
}

// rateLimitRoundTripper wraps the bearer-token transport and feeds every
// response's x-ratelimit-* headers into the shared rateLimiter, per
// Every response's rate-limit headers refresh the shared RateLimitState.
type rateLimitRoundTripper struct {
	base    http.RoundTripper
	limiter *rateLimiter
}

func (t *rateLimitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.awaitBudget(req.Context()); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, &provider.NetworkError{Cause: err}
	}
	t.limiter.observe(resp.Header)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, &provider.UnauthorizedError{}
	case http.StatusForbidden, http.StatusTooManyRequests:
		t.limiter.recordHit()
		logrus.WithFields(logrus.Fields{
			"status":    resp.StatusCode,
			"remaining": t.limiter.snapshot().Remaining,
		}).Warn("provider rate limit hit")
		body, _ := readAndCloseBody(resp)
		return nil, &provider.HTTPError{StatusCode: resp.StatusCode, Body: body}
	default:
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			t.limiter.recordSuccess()
		}
	}
	return resp, nil
}

func readAndCloseBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	return string(bs), err
}

func parseIntHeader(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseUnixHeader(h http.Header, key string) (time.Time, bool) {
	v := h.Get(key)
	if v == "" {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

// Query executes a GraphQL query under the retry/backoff envelope. A
// non-empty top-level errors[] array comes back from shurcooL/graphql as a
// single joined error already, matching the GraphQL(joined)
// mapping.
func (c *Client) Query(ctx context.Context, query any, variables map[string]any) error {
	return c.WithRetry(ctx, func(ctx context.Context) error {
		return c.gql.Query(ctx, query, variables)
	})
}

func (c *Client) Mutate(ctx context.Context, mutation any, variables map[string]any) error {
	return c.WithRetry(ctx, func(ctx context.Context) error {
		return c.gql.Mutate(ctx, mutation, variables)
	})
}
