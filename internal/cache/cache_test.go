package cache

import (
	"testing"
	"time"

	"melcloud_bridge/internal/types"
)

func snapshotWith(units ...string) *types.AccountSnapshot {
	b := types.Building{ID: 1, Name: "Home"}
	for _, id := range units {
		b.Units = append(b.Units, types.Unit{
			ID:   id,
			Name: "Unit " + id,
			Kind: types.KindAirToAir,
			Ata:  &types.AtaUnit{},
		})
	}
	return &types.AccountSnapshot{
		Buildings: []types.Building{b},
		FetchedAt: time.Now(),
	}
}

func TestEmptyCache(t *testing.T) {
	c := New()
	if c.Unit("anything") != nil {
		t.Error("Unit() on empty cache should return nil")
	}
	if c.BuildingForUnit("anything") != nil {
		t.Error("BuildingForUnit() on empty cache should return nil")
	}
	if c.Snapshot() != nil {
		t.Error("Snapshot() on empty cache should return nil")
	}
}

func TestRebuildAndLookup(t *testing.T) {
	c := New()
	snap := snapshotWith("a", "b")
	c.Rebuild(snap)

	u := c.Unit("a")
	if u == nil || u.ID != "a" {
		t.Fatalf("Unit(a) = %v", u)
	}
	b := c.BuildingForUnit("b")
	if b == nil || b.Name != "Home" {
		t.Fatalf("BuildingForUnit(b) = %v", b)
	}
	if c.Snapshot() != snap {
		t.Error("Snapshot() should return the snapshot the index was built from")
	}

	// Lookups must alias the snapshot's storage, not copies.
	if u != &snap.Buildings[0].Units[0] {
		t.Error("Unit() should point into the snapshot")
	}
}

func TestRebuildDropsStaleEntries(t *testing.T) {
	c := New()
	c.Rebuild(snapshotWith("old-1", "old-2"))
	c.Rebuild(snapshotWith("new-1"))

	if c.Unit("old-1") != nil || c.Unit("old-2") != nil {
		t.Error("entries from the previous snapshot survived a rebuild")
	}
	if c.Unit("new-1") == nil {
		t.Error("Unit(new-1) = nil after rebuild")
	}
}

func TestConcurrentReadsDuringRebuild(t *testing.T) {
	c := New()
	c.Rebuild(snapshotWith("x"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			c.Rebuild(snapshotWith("x"))
		}
	}()

	for i := 0; i < 1000; i++ {
		if u := c.Unit("x"); u == nil {
			t.Fatal("Unit(x) = nil during rebuild; readers saw a partial index")
		}
	}
	<-done
}
