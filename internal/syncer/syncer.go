// Package syncer polls a pull-request provider on a timer, diffs the
// result against a cache, and fans change events out to subscribers. It is
// a single long-lived loop driven by a command channel, a tick timer, and a
// broadcast of outgoing events -- the Go equivalent of an actor with three
// inboxes serviced by one select loop, so only one sync cycle is ever in
// flight.
package syncer

import (
	"context"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/provider"
	"maguffin.dev/stackengine/internal/utils/errutils"
)

// Config is the Syncer's tunable behavior. IntervalSecs is re-read at the
// top of every loop iteration, so a change made mid-interval takes effect
// at the next tick boundary rather than the currently scheduled one.
type Config struct {
	IntervalSecs  int
	Enabled       bool
	SyncOnStartup bool
}

// DefaultConfig matches the documented defaults: poll every minute, enabled,
// syncing once immediately on Start.
func DefaultConfig() Config {
	return Config{IntervalSecs: 60, Enabled: true, SyncOnStartup: true}
}

func (c Config) interval() time.Duration {
	if c.IntervalSecs <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalSecs) * time.Second
}

// RateLimitSource exposes a provider client's most recently observed budget.
// It is optional: a Syncer built without one never skips a cycle for rate
// limit reasons, leaving that to the provider's own retry envelope.
type RateLimitSource interface {
	RateLimitState() meta.RateLimitState
}

// EventKind discriminates the Event sum type broadcast by a Syncer.
type EventKind string

const (
	EventStatusChanged    EventKind = "status_changed"
	EventChangesDetected  EventKind = "changes_detected"
	EventRateLimitUpdated EventKind = "rate_limit_updated"
	EventError            EventKind = "error"
)

// Event is one message published on the broadcast channel; only the fields
// relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	Status    meta.SyncStatus
	Changes   []meta.SyncChange
	RateLimit meta.RateLimitState
	Err       error
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdSyncNow
	cmdUpdateConfig
)

type command struct {
	kind   commandKind
	config Config
}

// Syncer is the always-on background poller. Build one with New, wire it to
// a repository with SetRepository, then run it with Run in its own
// goroutine; drive it with Start/Stop/SyncNow/UpdateConfig from anywhere.
type Syncer struct {
	prs        provider.PullRequestProvider
	rateLimits RateLimitSource

	commands  chan command
	broadcast *broadcaster

	mu           sync.Mutex
	owner, repo  string
	repoSet      bool
	config       Config
	status       meta.SyncStatus
	stats        meta.SyncStats
	cached       []meta.PullRequest
	failureCount int
}

// New builds a Syncer against a pull-request provider. rateLimits may be
// nil.
func New(prs provider.PullRequestProvider, rateLimits RateLimitSource) *Syncer {
	return &Syncer{
		prs:        prs,
		rateLimits: rateLimits,
		commands:   make(chan command, 10),
		broadcast:  newBroadcaster(),
		config:     DefaultConfig(),
		status:     meta.SyncStatus{Kind: meta.SyncIdle},
	}
}

// SetRepository sets the owner/repo a sync cycle polls. A Syncer with no
// repository set skips every cycle. Switching to a different repository (or
// away from one) drops the cached pull-request snapshot: it described the
// old repository's state and would otherwise be diffed against the new
// repository's first fetch, manufacturing a burst of bogus "removed" changes.
func (s *Syncer) SetRepository(owner, repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repoSet && (s.owner != owner || s.repo != repo) {
		s.cached = nil
	}
	s.owner, s.repo, s.repoSet = owner, repo, true
}

// ClearRepository unsets the active repository, so subsequent cycles skip
// until SetRepository is called again, and drops the cached snapshot for the
// same reason SetRepository does when switching repositories.
func (s *Syncer) ClearRepository() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner, s.repo, s.repoSet = "", "", false
	s.cached = nil
}

// Subscribe registers a new listener on the broadcast channel. The returned
// unsubscribe function must be called once the caller stops draining it.
func (s *Syncer) Subscribe() (<-chan Event, func()) {
	return s.broadcast.subscribe()
}

// Status returns the current SyncStatus.
func (s *Syncer) Status() meta.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns a snapshot of the accumulated SyncStats.
func (s *Syncer) Stats() meta.SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Start begins ticking. Safe to call from any goroutine; Run must already
// be running to observe it.
func (s *Syncer) Start() { s.commands <- command{kind: cmdStart} }

// Stop halts future ticks. An in-flight cycle is not interrupted.
func (s *Syncer) Stop() { s.commands <- command{kind: cmdStop} }

// SyncNow triggers an immediate out-of-band cycle, independent of Start.
func (s *Syncer) SyncNow() { s.commands <- command{kind: cmdSyncNow} }

// UpdateConfig replaces the Syncer's Config. IntervalSecs changes take
// effect at the next tick boundary.
func (s *Syncer) UpdateConfig(cfg Config) { s.commands <- command{kind: cmdUpdateConfig, config: cfg} }

// Run is the Syncer's loop: a select over the command channel and a tick
// timer, re-armed with the current config's interval on every iteration. It
// blocks until ctx is canceled; the caller's shutdown policy is to cancel
// only after any desired final SyncNow/Stop has been observed, since
// canceling mid-cycle does not interrupt runCycle.
func (s *Syncer) Run(ctx context.Context) {
	running := false
	timer := time.NewTimer(s.configSnapshot().interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-s.commands:
			switch cmd.kind {
			case cmdStart:
				running = true
				resetTimer(timer, s.configSnapshot().interval())
				if s.configSnapshot().SyncOnStartup {
					s.runCycle(ctx)
				}
			case cmdStop:
				running = false
			case cmdSyncNow:
				s.runCycle(ctx)
			case cmdUpdateConfig:
				s.setConfig(cmd.config)
			}

		case <-timer.C:
			if running {
				s.runCycle(ctx)
			}
			resetTimer(timer, s.configSnapshot().interval())
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (s *Syncer) configSnapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *Syncer) setConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *Syncer) repoContext() (owner, repo string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.repo, s.repoSet
}

func (s *Syncer) cachedSnapshot() []meta.PullRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

func (s *Syncer) setStatus(status meta.SyncStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Syncer) publish(e Event) { s.broadcast.publish(e) }

// runCycle executes one sync cycle: skip checks, fetch, diff, cache
// replacement, and status/stats bookkeeping. It never returns an error --
// every outcome is reported via published events and SyncStatus, matching
// the always-on background-task contract.
func (s *Syncer) runCycle(ctx context.Context) {
	cfg := s.configSnapshot()
	owner, repoName, ok := s.repoContext()
	if !cfg.Enabled || !ok {
		return
	}

	if s.rateLimits != nil {
		rl := s.rateLimits.RateLimitState()
		if rl.Remaining == 0 && rl.ResetsAt.After(time.Now()) {
			resetsAt := rl.ResetsAt
			s.setStatus(meta.SyncStatus{Kind: meta.SyncRateLimited, ResetsAt: &resetsAt})
			s.publish(Event{Kind: EventStatusChanged, Status: s.Status()})
			return
		}
	}

	started := time.Now().UTC()
	s.setStatus(meta.SyncStatus{Kind: meta.SyncInProgress, StartedAt: &started, CurrentTask: "fetching pull requests"})
	s.publish(Event{Kind: EventStatusChanged, Status: s.Status()})

	newList, apiRequests, err := s.fetchAll(ctx, owner, repoName)

	s.mu.Lock()
	s.stats.TotalSyncs++
	s.stats.APIRequests += apiRequests
	s.mu.Unlock()

	if s.rateLimits != nil {
		s.publish(Event{Kind: EventRateLimitUpdated, RateLimit: s.rateLimits.RateLimitState()})
	}

	if err != nil {
		s.handleCycleFailure(err)
		return
	}

	oldList := s.cachedSnapshot()
	changes := Diff(oldList, newList)

	s.mu.Lock()
	s.cached = newList
	s.mu.Unlock()

	s.recordSuccess(time.Since(started))

	if len(changes) > 0 {
		s.publish(Event{Kind: EventChangesDetected, Changes: changes})
	}

	now := time.Now().UTC()
	s.setStatus(meta.SyncStatus{Kind: meta.SyncIdle, LastSync: &now})
	s.publish(Event{Kind: EventStatusChanged, Status: s.Status()})
}

// fetchAll pages through the full open pull-request list with no base
// filter, one provider call per page.
func (s *Syncer) fetchAll(ctx context.Context, owner, repo string) ([]meta.PullRequest, int, error) {
	var all []meta.PullRequest
	cursor := ""
	requests := 0
	for {
		page, next, hasMore, err := s.prs.ListPullRequests(ctx, owner, repo, "", cursor)
		requests++
		if err != nil {
			return nil, requests, errors.WrapIff(err, "failed to list pull requests for %s/%s", owner, repo)
		}
		all = append(all, page...)
		if !hasMore {
			return all, requests, nil
		}
		cursor = next
	}
}

func (s *Syncer) handleCycleFailure(err error) {
	s.mu.Lock()
	s.stats.FailedSyncs++
	s.mu.Unlock()

	rateLimited, isRateLimited := errutils.As[*provider.RateLimitedError](err)
	if isRateLimited || strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		resetsAt := time.Now().Add(time.Minute)
		if rateLimited != nil {
			resetsAt = rateLimited.ResetsAt
		}
		s.setStatus(meta.SyncStatus{Kind: meta.SyncRateLimited, ResetsAt: &resetsAt})
		logrus.WithError(err).Warn("sync cycle rate limited")
	} else {
		s.mu.Lock()
		s.failureCount++
		count := s.failureCount
		s.mu.Unlock()
		now := time.Now().UTC()
		s.setStatus(meta.SyncStatus{Kind: meta.SyncFailed, Error: err.Error(), FailedAt: &now, FailureCount: count})
		logrus.WithError(err).Error("sync cycle failed")
	}

	s.publish(Event{Kind: EventError, Err: err})
	s.publish(Event{Kind: EventStatusChanged, Status: s.Status()})
}

// recordSuccess updates SuccessfulSyncs and the running average sync
// duration as a plain cumulative arithmetic mean
// (avg' = (avg*(n-1) + latest) / n), and resets the consecutive-failure
// counter.
func (s *Syncer) recordSuccess(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SuccessfulSyncs++
	n := float64(s.stats.SuccessfulSyncs)
	ms := float64(d.Milliseconds())
	s.stats.AvgSyncDurationMs = (s.stats.AvgSyncDurationMs*(n-1) + ms) / n
	s.failureCount = 0
}
