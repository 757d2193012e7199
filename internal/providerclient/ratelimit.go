package providerclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/provider"
)

// maxPreemptiveWait bounds how long awaitBudget will sleep before issuing a
// request when the budget is already known to be exhausted; beyond this the
// caller should see a RateLimited status rather than block.
const maxPreemptiveWait = 5 * time.Minute

// backoffCap is the ceiling on a single 403/429 retry sleep.
const backoffCap = 900 * time.Second

// rateLimiter tracks the provider's request budget as observed from
// response headers and computes the 403/429 backoff schedule.
type rateLimiter struct {
	mu    sync.Mutex
	state meta.RateLimitState
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{}
}

func (l *rateLimiter) snapshot() meta.RateLimitState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// observe refreshes RateLimitState from a response's rate-limit headers.
func (l *rateLimiter) observe(h http.Header) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if remaining, ok := parseIntHeader(h, "x-ratelimit-remaining"); ok {
		l.state.Remaining = remaining
	}
	if limit, ok := parseIntHeader(h, "x-ratelimit-limit"); ok {
		l.state.Limit = limit
	}
	if resetsAt, ok := parseUnixHeader(h, "x-ratelimit-reset"); ok {
		l.state.ResetsAt = resetsAt
	}
}

// recordHit accounts a 403/429 response.
func (l *rateLimiter) recordHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.ConsecutiveHits++
}

// recordSuccess resets the consecutive-hit counter on a response that shows
// the budget still has headroom.
func (l *rateLimiter) recordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Remaining > 0 {
		l.state.ConsecutiveHits = 0
	}
}

// awaitBudget sleeps before issuing a request if the last observed state
// shows the budget exhausted, up to maxPreemptiveWait; beyond that it
// returns a RateLimitedError instead of blocking indefinitely.
func (l *rateLimiter) awaitBudget(ctx context.Context) error {
	l.mu.Lock()
	remaining, resetsAt := l.state.Remaining, l.state.ResetsAt
	l.mu.Unlock()

	if remaining != 0 || resetsAt.IsZero() || !resetsAt.After(time.Now()) {
		return nil
	}

	wait := time.Until(resetsAt) + time.Second
	if wait > maxPreemptiveWait {
		return &provider.RateLimitedError{ResetsAt: resetsAt}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff computes the kth (1-indexed) 403/429 retry delay:
// min(900, 60*2^min(hits,5)) seconds. It is monotone in
// hits (P6): Backoff(k) >= Backoff(k-1) for all k, since 60*2^n is
// non-decreasing in n and the cap is constant once reached.
func Backoff(consecutiveHits int) time.Duration {
	exp := consecutiveHits
	if exp > 5 {
		exp = 5
	}
	secs := 60 * (1 << uint(exp))
	d := time.Duration(secs) * time.Second
	if d > backoffCap {
		return backoffCap
	}
	return d
}
