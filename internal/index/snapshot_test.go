package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bookcluster/platform/pkg/proto"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	store.PutAll(map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0, 4}}, {BookID: 2, Positions: []int{7}}},
		"ship":  {{BookID: 1, Positions: []int{2}}},
	})

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := WriteSnapshot(store, path); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	restored := NewStore()
	if err := LoadSnapshot(restored, path); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	got := restored.GetAll([]string{"whale", "ship"})
	if len(got["whale"]) != 2 || len(got["ship"]) != 1 {
		t.Fatalf("unexpected restored postings: %+v", got)
	}
}

func TestLoadSnapshotMissingFileIsNotAnError(t *testing.T) {
	store := NewStore()
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")
	if err := LoadSnapshot(store, path); err != nil {
		t.Fatalf("LoadSnapshot() error = %v, want nil for a missing file", err)
	}
	if docs, terms := store.Stats(); docs != 0 || terms != 0 {
		t.Fatalf("expected an empty store, got (%d, %d)", docs, terms)
	}
}

func TestLoadSnapshotRejectsCorruptedChecksum(t *testing.T) {
	store := NewStore()
	store.PutAll(map[string][]proto.Posting{"whale": {{BookID: 1}}})
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := WriteSnapshot(store, path); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("corrupting snapshot: %v", err)
	}

	restored := NewStore()
	if err := LoadSnapshot(restored, path); err == nil {
		t.Fatal("expected a checksum error for a corrupted snapshot body")
	}
}
