// Package cache provides O(1) identity lookup over the building/unit
// hierarchy. Without it every property read walks buildings × units, and the
// UI layer reads around ten properties per cycle.
package cache

import (
	"sync/atomic"

	"melcloud_bridge/internal/types"
)

// index is one immutable generation of the lookup maps. A rebuild constructs
// a fresh index off to the side and swaps the pointer, so readers see either
// the old maps or the complete new ones, never a partial rebuild.
type index struct {
	snapshot       *types.AccountSnapshot
	unitByID       map[string]*types.Unit
	buildingByUnit map[string]*types.Building
}

// SnapshotCache indexes the most recently published snapshot. Safe for
// concurrent readers; the polling coordinator is the only writer.
type SnapshotCache struct {
	idx atomic.Pointer[index]
}

// New returns an empty cache. Lookups return nil until the first Rebuild.
func New() *SnapshotCache {
	c := &SnapshotCache{}
	c.idx.Store(&index{
		unitByID:       map[string]*types.Unit{},
		buildingByUnit: map[string]*types.Building{},
	})
	return c
}

// Rebuild repopulates both maps from snap in one pass and publishes the result
// atomically. Entries from the previous snapshot never survive a rebuild.
func (c *SnapshotCache) Rebuild(snap *types.AccountSnapshot) {
	next := &index{
		snapshot:       snap,
		unitByID:       make(map[string]*types.Unit, snap.UnitCount()),
		buildingByUnit: make(map[string]*types.Building, snap.UnitCount()),
	}

	for i := range snap.Buildings {
		b := &snap.Buildings[i]
		for j := range b.Units {
			u := &b.Units[j]
			next.unitByID[u.ID] = u
			next.buildingByUnit[u.ID] = b
		}
	}

	c.idx.Store(next)
}

// Unit returns the unit with the given id, or nil if the current snapshot has
// no such unit.
func (c *SnapshotCache) Unit(id string) *types.Unit {
	return c.idx.Load().unitByID[id]
}

// BuildingForUnit returns the building containing the given unit, or nil.
func (c *SnapshotCache) BuildingForUnit(id string) *types.Building {
	return c.idx.Load().buildingByUnit[id]
}

// Snapshot returns the snapshot the current index was built from, or nil
// before the first rebuild.
func (c *SnapshotCache) Snapshot() *types.AccountSnapshot {
	return c.idx.Load().snapshot
}
