// Package poller owns the refresh cadence: one authenticated fetch per tick,
// failure classification, and atomic publication of each new snapshot.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"melcloud_bridge/internal/cache"
	"melcloud_bridge/internal/mapper"
	"melcloud_bridge/internal/types"
)

// State is the coordinator's lifecycle state. Degraded states are soft:
// consumers see entities as unavailable but polling continues on the normal
// interval, since the cause may clear on the vendor side.
type State int

const (
	StateUninitialized State = iota
	StateAuthenticating
	StatePolling
	StateDegradedAuth
	StateDegradedConnectivity
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAuthenticating:
		return "authenticating"
	case StatePolling:
		return "polling"
	case StateDegradedAuth:
		return "degraded_auth"
	case StateDegradedConnectivity:
		return "degraded_connectivity"
	default:
		return "unknown"
	}
}

// Stats counts poll outcomes since startup, by class.
type Stats struct {
	Successes            uint64
	AuthFailures         uint64
	ConnectivityFailures uint64
}

// SnapshotFetcher is the read side of the gateway.
type SnapshotFetcher interface {
	FetchAccountSnapshot(ctx context.Context) ([]byte, error)
}

const defaultDebounce = 250 * time.Millisecond

// Coordinator runs the fixed-interval poll loop. It is the only writer to the
// snapshot and the cache; any number of consumers read concurrently.
type Coordinator struct {
	gateway SnapshotFetcher
	cache   *cache.SnapshotCache
	logger  *slog.Logger

	interval time.Duration
	debounce time.Duration

	// refreshCh carries one waiter per immediate-refresh request. Requests
	// arriving within the debounce window are coalesced into a single fetch.
	refreshCh chan chan struct{}

	mu          sync.RWMutex
	state       State
	snapshot    *types.AccountSnapshot
	lastSuccess time.Time
	lastError   error
	stats       Stats
}

// New creates a coordinator polling at the given interval.
func New(gateway SnapshotFetcher, c *cache.SnapshotCache, interval time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		gateway:   gateway,
		cache:     c,
		logger:    logger,
		interval:  interval,
		debounce:  defaultDebounce,
		refreshCh: make(chan chan struct{}),
		state:     StateUninitialized,
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
// Out-of-band refreshes do not reset the regular schedule's phase.
func (c *Coordinator) Run(ctx context.Context) {
	c.setState(StateAuthenticating)
	c.pollOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Polling stopped")
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		case waiter := <-c.refreshCh:
			waiters := c.coalesceRefreshes(ctx, waiter)
			c.pollOnce(ctx)
			for _, w := range waiters {
				close(w)
			}
		}
	}
}

// coalesceRefreshes collects refresh requests arriving within the debounce
// window, so a burst of UI commands triggers one fetch instead of many.
func (c *Coordinator) coalesceRefreshes(ctx context.Context, first chan struct{}) []chan struct{} {
	waiters := []chan struct{}{first}
	t := time.NewTimer(c.debounce)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return waiters
		case w := <-c.refreshCh:
			waiters = append(waiters, w)
		case <-t.C:
			return waiters
		}
	}
}

// Refresh performs an out-of-band fetch and blocks until it completes, so a
// write-command caller observes the effect of its own command. Multiple
// concurrent callers share one fetch.
func (c *Coordinator) Refresh(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case c.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) pollOnce(ctx context.Context) {
	cycle := uuid.NewString()
	c.logger.Debug("Poll cycle starting", "cycle", cycle)
	start := time.Now()

	payload, err := c.gateway.FetchAccountSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not degradation.
			return
		}
		c.recordFailure(cycle, err)
		return
	}

	snap, err := mapper.ParseSnapshot(payload, start)
	if err != nil {
		c.recordFailure(cycle, err)
		return
	}

	// Fetch, rebuild, publish: strictly in that order, so a reader holding
	// the old snapshot and a reader resolving through the cache never see a
	// mix of generations that the other does not.
	c.cache.Rebuild(snap)

	c.mu.Lock()
	recovered := c.state != StatePolling && c.state != StateAuthenticating
	c.state = StatePolling
	c.snapshot = snap
	c.lastSuccess = time.Now()
	c.lastError = nil
	c.stats.Successes++
	c.mu.Unlock()

	if recovered {
		c.logger.Info("Polling recovered", "cycle", cycle, "units", snap.UnitCount())
	} else {
		c.logger.Debug("Poll cycle complete", "cycle", cycle,
			"units", snap.UnitCount(), "elapsed", time.Since(start).Round(time.Millisecond))
	}
}

// recordFailure classifies a cycle failure. Auth failures already include the
// session manager's one internal retry; everything else during a poll is
// connectivity-class for availability purposes, APIError included.
func (c *Coordinator) recordFailure(cycle string, err error) {
	c.mu.Lock()
	if errors.Is(err, types.ErrAuthentication) {
		c.state = StateDegradedAuth
		c.stats.AuthFailures++
	} else {
		c.state = StateDegradedConnectivity
		c.stats.ConnectivityFailures++
	}
	c.lastError = err
	state := c.state
	c.mu.Unlock()

	c.logger.Error("Poll cycle failed", "cycle", cycle, "state", state.String(), "error", err)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Snapshot returns the most recently published snapshot, or nil before the
// first successful cycle. The value is immutable and safe to hold across
// subsequent polls.
func (c *Coordinator) Snapshot() *types.AccountSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Available reports whether the last cycle succeeded. When false, consumers
// must surface entities as unavailable rather than serve stale data.
func (c *Coordinator) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StatePolling && c.snapshot != nil
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastSuccess returns the completion time of the last successful cycle.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// LastError returns the failure that put the coordinator in a degraded state,
// or nil when polling.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// CollectStats returns the poll outcome counters.
func (c *Coordinator) CollectStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
