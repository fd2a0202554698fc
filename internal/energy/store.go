// Package energy folds sparse hourly interval-energy telemetry into persisted
// monotonic cumulative counters, one per unit.
package energy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// storeVersion is bumped when the on-disk schema changes; Load refuses files
// from a newer schema instead of corrupting them.
const storeVersion = 1

// UnitState is the in-memory accumulator state for one unit: the running
// total and the set of hour buckets already folded into it.
type UnitState struct {
	CumulativeKWh float64
	Counted       map[string]struct{}
}

type unitRecord struct {
	CumulativeKWh  float64  `json:"cumulative_kwh"`
	CountedBuckets []string `json:"counted_buckets"`
}

type storeFile struct {
	Version int                   `json:"version"`
	Units   map[string]unitRecord `json:"units"`
}

// Store persists accumulator state as one JSON file per account. The
// accumulator is its only reader and writer.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. A missing file is a fresh install, not an
// error.
func (s *Store) Load() (map[string]*UnitState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]*UnitState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read energy state: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode energy state: %w", err)
	}
	if file.Version > storeVersion {
		return nil, fmt.Errorf("energy state version %d is newer than supported %d", file.Version, storeVersion)
	}

	states := make(map[string]*UnitState, len(file.Units))
	for id, rec := range file.Units {
		st := &UnitState{
			CumulativeKWh: rec.CumulativeKWh,
			Counted:       make(map[string]struct{}, len(rec.CountedBuckets)),
		}
		for _, b := range rec.CountedBuckets {
			st.Counted[b] = struct{}{}
		}
		states[id] = st
	}
	return states, nil
}

// Save writes the state atomically: temp file in the same directory, then
// rename, so a crash mid-write never truncates the previous state.
func (s *Store) Save(states map[string]*UnitState) error {
	file := storeFile{
		Version: storeVersion,
		Units:   make(map[string]unitRecord, len(states)),
	}
	for id, st := range states {
		buckets := make([]string, 0, len(st.Counted))
		for b := range st.Counted {
			buckets = append(buckets, b)
		}
		sort.Strings(buckets)
		file.Units[id] = unitRecord{CumulativeKWh: st.CumulativeKWh, CountedBuckets: buckets}
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode energy state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".energy-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write energy state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close energy state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace energy state: %w", err)
	}
	return nil
}
