package providerclient

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/provider"
)

// maxRetries bounds the 403/429 retry loop: retry
// the same request up to 3 times with the computed backoff, then surface
// RateLimited.
const maxRetries = 3

// WithRetry runs op, retrying on a rate-limit response with the backoff
// schedule from Backoff, and retrying a transport-level NetworkError once
// transient transport errors are retried once before being surfaced.
func (c *Client) WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var networkRetried bool
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var netErr *provider.NetworkError
		if errors.As(err, &netErr) {
			if networkRetried {
				return err
			}
			networkRetried = true
			continue
		}

		var rlErr *provider.RateLimitedError
		if errors.As(err, &rlErr) {
			return err
		}

		if isRateLimitHit(err) {
			hits := c.limiter.snapshot().ConsecutiveHits
			if attempt >= maxRetries {
				return &provider.RateLimitedError{ResetsAt: c.limiter.snapshot().ResetsAt}
			}
			backoff := Backoff(hits)
			logrus.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": backoff,
			}).Warn("retrying provider request after rate limit")
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			continue
		}

		return err
	}
}

// isRateLimitHit reports whether err wraps a provider.HTTPError with status
// 403 or 429, used to decide whether an opaque GraphQL-transport error was
// actually the rate limiter firing.
func isRateLimitHit(err error) bool {
	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 403 || httpErr.StatusCode == 429
	}
	return false
}
