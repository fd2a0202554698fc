package energy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsFreshInstall(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	states, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(states) != 0 {
		t.Errorf("states = %v, want empty", states)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.json")
	s := NewStore(path)

	in := map[string]*UnitState{
		"u1": {
			CumulativeKWh: 12.75,
			Counted: map[string]struct{}{
				"2026-03-01T09": {},
				"2026-03-01T10": {},
			},
		},
		"u2": {CumulativeKWh: 0, Counted: map[string]struct{}{}},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("units = %d, want 2", len(out))
	}
	if out["u1"].CumulativeKWh != 12.75 {
		t.Errorf("u1 total = %v, want 12.75", out["u1"].CumulativeKWh)
	}
	if len(out["u1"].Counted) != 2 {
		t.Errorf("u1 buckets = %v", out["u1"].Counted)
	}
	if _, ok := out["u1"].Counted["2026-03-01T09"]; !ok {
		t.Error("u1 missing bucket 2026-03-01T09")
	}
}

func TestSave_BucketsSortedOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.json")
	s := NewStore(path)

	in := map[string]*UnitState{
		"u1": {Counted: map[string]struct{}{
			"2026-03-01T11": {},
			"2026-03-01T09": {},
			"2026-03-01T10": {},
		}},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var file struct {
		Version int `json:"version"`
		Units   map[string]struct {
			CountedBuckets []string `json:"counted_buckets"`
		} `json:"units"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if file.Version != storeVersion {
		t.Errorf("version = %d, want %d", file.Version, storeVersion)
	}
	got := file.Units["u1"].CountedBuckets
	want := []string{"2026-03-01T09", "2026-03-01T10", "2026-03-01T11"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buckets = %v, want %v", got, want)
		}
	}
}

func TestLoad_RefusesNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"units":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Error("Load() expected error for newer schema version")
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Error("Load() expected error for corrupt file")
	}
}

func TestSave_ReplacesExistingFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "energy.json")
	s := NewStore(path)

	if err := s.Save(map[string]*UnitState{"u1": {CumulativeKWh: 1, Counted: map[string]struct{}{}}}); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if err := s.Save(map[string]*UnitState{"u1": {CumulativeKWh: 2, Counted: map[string]struct{}{}}}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out["u1"].CumulativeKWh != 2 {
		t.Errorf("total = %v, want 2", out["u1"].CumulativeKWh)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory entries = %d, want just the state file", len(entries))
	}
}
