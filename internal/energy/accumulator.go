package energy

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"melcloud_bridge/internal/api"
	"melcloud_bridge/internal/types"
)

const (
	// bucketLayout keys one hour of telemetry, always in UTC.
	bucketLayout = "2006-01-02T15"

	// fetchWindow trails well past the previous cycle so a late-uploading
	// unit is not missed. Overlap is expected; the counted-bucket set makes
	// re-fetched hours harmless.
	fetchWindow = 4 * time.Hour

	// bucketRetention bounds the counted set. Anything this old can never be
	// re-fetched by a trailing window again.
	bucketRetention = 7 * 24 * time.Hour

	// maxJitter spreads per-unit fetches so an account with several units
	// does not burst the vendor.
	maxJitter = 3 * time.Second
)

// IntervalFetcher is the telemetry read side of the gateway.
type IntervalFetcher interface {
	FetchEnergyInterval(ctx context.Context, unitID string, from, to time.Time, measure api.Measure) ([]api.EnergyPoint, error)
}

// SnapshotSource yields the current account snapshot, nil before the first
// successful device poll.
type SnapshotSource interface {
	Snapshot() *types.AccountSnapshot
}

// Accumulator converts "energy used since last upload" samples into one
// monotonically non-decreasing kWh total per unit. A given hour bucket
// contributes at most once, across overlapping fetch windows and restarts.
type Accumulator struct {
	gateway  IntervalFetcher
	source   SnapshotSource
	store    *Store
	logger   *slog.Logger
	interval time.Duration

	window time.Duration
	jitter time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	states map[string]*UnitState
}

// New creates an accumulator and loads any persisted state.
func New(gateway IntervalFetcher, source SnapshotSource, store *Store, interval time.Duration, logger *slog.Logger) (*Accumulator, error) {
	states, err := store.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("Energy state loaded", "units", len(states))

	return &Accumulator{
		gateway:  gateway,
		source:   source,
		store:    store,
		logger:   logger,
		interval: interval,
		window:   fetchWindow,
		jitter:   maxJitter,
		now:      time.Now,
		states:   states,
	}, nil
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately so a fresh install establishes its baseline without waiting a
// full interval.
func (a *Accumulator) Run(ctx context.Context) {
	a.runCycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Energy polling stopped")
			return
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

func (a *Accumulator) runCycle(ctx context.Context) {
	snap := a.source.Snapshot()
	if snap == nil {
		a.logger.Debug("No snapshot yet, skipping energy cycle")
		return
	}

	first := true
	changed := false
	for i := range snap.Buildings {
		for j := range snap.Buildings[i].Units {
			unit := &snap.Buildings[i].Units[j]
			if !unit.EnergyCapable() {
				continue
			}
			if !first {
				if err := a.pause(ctx); err != nil {
					return
				}
			}
			first = false
			if a.ingestUnit(ctx, unit.ID) {
				changed = true
			}
		}
	}

	if !changed {
		return
	}
	a.mu.RLock()
	err := a.store.Save(a.states)
	a.mu.RUnlock()
	if err != nil {
		a.logger.Error("Failed to persist energy state", "error", err)
	}
}

// pause sleeps a random sub-jitter duration between per-unit fetches.
func (a *Accumulator) pause(ctx context.Context) error {
	if a.jitter <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(rand.Int63n(int64(a.jitter))))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ingestUnit fetches the trailing window for one unit and folds new buckets
// into its total. Reports whether state changed.
func (a *Accumulator) ingestUnit(ctx context.Context, unitID string) bool {
	now := a.now()
	points, err := a.gateway.FetchEnergyInterval(ctx, unitID, now.Add(-a.window), now, api.MeasureEnergyConsumed)
	if err != nil {
		a.logger.Warn("Energy fetch failed, keeping previous total", "unit", unitID, "error", err)
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st, known := a.states[unitID]
	if !known {
		// First sight of this unit: record which buckets exist but count
		// nothing, so hours consumed before the bridge existed never inflate
		// the counter. Only buckets seen in later cycles contribute.
		st = &UnitState{Counted: make(map[string]struct{}, len(points))}
		for _, p := range points {
			st.Counted[p.Time.UTC().Format(bucketLayout)] = struct{}{}
		}
		a.states[unitID] = st
		a.logger.Info("Energy baseline established", "unit", unitID, "buckets", len(st.Counted))
		return true
	}

	changed := false
	for _, p := range points {
		key := p.Time.UTC().Format(bucketLayout)
		if _, counted := st.Counted[key]; counted {
			continue
		}
		if p.ValueWh < 0 {
			// The total must never decrease.
			a.logger.Warn("Skipping negative energy sample", "unit", unitID, "bucket", key, "wh", p.ValueWh)
			continue
		}
		st.CumulativeKWh += p.ValueWh / 1000.0
		st.Counted[key] = struct{}{}
		changed = true
	}

	if a.pruneCounted(st, now) {
		changed = true
	}
	return changed
}

// pruneCounted drops bucket keys old enough to be unreachable by any future
// fetch window, keeping the persisted set bounded.
func (a *Accumulator) pruneCounted(st *UnitState, now time.Time) bool {
	cutoff := now.Add(-bucketRetention)
	pruned := false
	for key := range st.Counted {
		ts, err := time.Parse(bucketLayout, key)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			delete(st.Counted, key)
			pruned = true
		}
	}
	return pruned
}

// Totals returns a copy of the cumulative kWh per unit.
func (a *Accumulator) Totals() map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]float64, len(a.states))
	for id, st := range a.states {
		out[id] = st.CumulativeKWh
	}
	return out
}
