package provider

import (
	"strconv"
	"time"
)

// RateLimitedError is returned when the request budget is exhausted and the
// caller should not block further; it carries the time the window resets.
type RateLimitedError struct {
	ResetsAt time.Time
}

func (e *RateLimitedError) Error() string {
	return "provider rate limit exceeded, resets at " + e.ResetsAt.Format(time.RFC3339)
}

// UnauthorizedError is returned on a 401; the caller is expected to re-run
// the device flow.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string { return "provider request unauthorized" }

// NotFoundError is returned when a requested entity (PR, repository, user)
// does not exist.
type NotFoundError struct {
	Kind string // e.g. "pull_request", "repository"
	ID   string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found: " + e.ID }

// GraphQLError wraps a provider's non-empty GraphQL errors[] array as a
// single joined failure.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	s := "graphql:"
	for _, m := range e.Messages {
		s += " " + m + ";"
	}
	return s
}

// NetworkError wraps a transport-level failure (connection reset, timeout,
// DNS). ProviderClient retries it once before surfacing it.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return "network error: " + e.Cause.Error() }
func (e *NetworkError) Unwrap() error { return e.Cause }

// HTTPError wraps a non-2xx HTTP status and its body. ProviderClient's
// transport returns it for 403 and 429 responses, which its retry envelope
// treats as rate-limit hits.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return "unexpected http status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}
