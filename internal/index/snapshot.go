package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bookcluster/platform/pkg/proto"
)

// Snapshot is an on-disk, point-in-time dump of a Store's postings, used
// to warm-restart a node faster than replaying the whole
// message bus history. It is never the source of truth: a node rebuilds
// its authoritative state from GetAll/PutAll traffic and the snapshot is
// only a recovery-time shortcut, never consulted by the query path
// directly.
const (
	snapshotMagic   uint32 = 0x42435358 // "BCSX"
	snapshotVersion uint32 = 1
	snapshotHeader  int    = 16
)

type snapshotEntry struct {
	Term     string          `json:"t"`
	Postings []proto.Posting `json:"p"`
}

// WriteSnapshot dumps store's current postings to path, atomically (write
// to a .tmp sibling, then rename).
func WriteSnapshot(store *Store, path string) error {
	store.mu.RLock()
	entries := make([]snapshotEntry, 0, len(store.postings))
	for term, byBook := range store.postings {
		postings := make([]proto.Posting, 0, len(byBook))
		for bookID, positions := range byBook {
			postings = append(postings, proto.Posting{BookID: bookID, Positions: positions})
		}
		sort.Slice(postings, func(i, j int) bool { return postings[i].BookID < postings[j].BookID })
		entries = append(entries, snapshotEntry{Term: term, Postings: postings})
	}
	store.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling snapshot body: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer f.Close()

	header := make([]byte, snapshotHeader)
	binary.LittleEndian.PutUint32(header[0:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:8], snapshotVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(entries)))
	binary.LittleEndian.PutUint32(header[12:16], crc32.ChecksumIEEE(body))

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("writing snapshot body: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()

	return os.Rename(tmpPath, path)
}

// LoadSnapshot reads a snapshot written by WriteSnapshot and loads it into
// store via PutAll. A missing file is not an error: a fresh node simply
// starts empty and relies on index.request traffic to populate itself.
func LoadSnapshot(store *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading snapshot file: %w", err)
	}
	if len(data) < snapshotHeader {
		return fmt.Errorf("snapshot file %s is truncated", path)
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != snapshotMagic {
		return fmt.Errorf("snapshot file %s has bad magic bytes %x", path, magic)
	}
	count := binary.LittleEndian.Uint32(data[8:12])
	checksum := binary.LittleEndian.Uint32(data[12:16])
	body := data[snapshotHeader:]
	if crc32.ChecksumIEEE(body) != checksum {
		return fmt.Errorf("snapshot file %s failed checksum verification", path)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("parsing snapshot body: %w", err)
	}
	if uint32(len(entries)) != count {
		return fmt.Errorf("snapshot file %s declared %d terms but contained %d", path, count, len(entries))
	}

	updates := make(map[string][]proto.Posting, len(entries))
	for _, e := range entries {
		updates[e.Term] = e.Postings
	}
	store.PutAll(updates)
	return nil
}

// SnapshotScheduler returns a loop that periodically writes a snapshot
// until its done channel is closed.
func SnapshotScheduler(store *Store, path string, interval time.Duration) func(done <-chan struct{}) {
	return func(done <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = WriteSnapshot(store, path)
			case <-done:
				return
			}
		}
	}
}
