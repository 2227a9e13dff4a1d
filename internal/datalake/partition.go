// Package datalake implements the local, content-addressed partition (C2)
// each node holds: one directory per ingested book, plus an append-only
// ingestion log used to answer "is this book locally present?"
package datalake

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bcerrors "github.com/bookcluster/platform/pkg/errors"

	"github.com/bookcluster/platform/internal/hasher"
	"github.com/bookcluster/platform/internal/splitter"
)

const logFileName = "ingestions.log"

// IngestStatus mirrors the status values ingest() can return.
type IngestStatus string

const (
	StatusDownloaded IngestStatus = "downloaded"
	StatusAvailable  IngestStatus = "available"
)

// IngestResult is the outcome of Ingest.
type IngestResult struct {
	Status       IngestStatus
	RelativePath string
	ContentHash  string
	Header       string
	Body         string
}

// ReplicaResult is the outcome of ReceiveReplica.
type ReplicaResult struct {
	Success bool
	Message string
}

// Stats summarizes the local partition.
type Stats struct {
	BookCount  int
	TotalBytes int64
}

// Partition is a node's local datalake: the directory tree described in
// §6(c) of the design plus the append-only log that indexes it.
type Partition struct {
	rootDir string
	logPath string
	// mu serializes the check-then-write sequence in Ingest/ReceiveReplica
	// so two concurrent ingests of the same bookId cannot both observe
	// "absent" and both write.
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates (if needed) rootDir and returns a ready Partition.
func New(rootDir string) (*Partition, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating datalake root %s: %w", rootDir, err)
	}
	return &Partition{
		rootDir: rootDir,
		logPath: filepath.Join(rootDir, logFileName),
		logger:  slog.Default().With("component", "datalake"),
	}, nil
}

// Ingest writes a newly-fetched book's bytes to the local partition. If the
// ingestion log already records this bookId, the write is skipped entirely
// and the previously recorded path is returned as "available" — re-ingest
// of the same bookId is a no-op regardless of content, per the immutability
// invariant in §3.
func (p *Partition) Ingest(bookID int, raw []byte) (IngestResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok, err := p.locate(bookID); err != nil {
		return IngestResult{}, err
	} else if ok {
		return IngestResult{Status: StatusAvailable, RelativePath: existing}, nil
	}

	now := time.Now()
	relPath := filepath.Join(now.Format("20060102"), now.Format("15"), fmt.Sprintf("%d", bookID))
	header, body := splitter.Split(raw)
	contentHash := hasher.Hash(raw)

	if err := p.writeBookFiles(relPath, raw, []byte(header), []byte(body)); err != nil {
		return IngestResult{}, err
	}

	if err := appendLogLine(p.logPath, logEntry{
		Timestamp: now,
		BookID:    bookID,
		Path:      relPath,
		Bytes:     len(raw),
	}); err != nil {
		return IngestResult{}, err
	}

	p.logger.Info("ingested book", "book_id", bookID, "path", relPath, "bytes", len(raw))
	return IngestResult{
		Status:       StatusDownloaded,
		RelativePath: relPath,
		ContentHash:  contentHash,
		Header:       header,
		Body:         body,
	}, nil
}

// ReceiveReplica handles an inbound replica push from a peer. It verifies
// the hash of the received raw bytes before writing anything; on mismatch
// it writes nothing and returns a result with Success false and a message
// naming both hashes, with a nil error. It never triggers onward
// replication, which would cause a storm.
func (p *Partition) ReceiveReplica(bookID int, relPath string, raw, header, body []byte, expectedHash string) (ReplicaResult, error) {
	computed := hasher.Hash(raw)
	if expectedHash != "" && computed != expectedHash {
		msg := fmt.Sprintf("Hash mismatch (expected=%s, computed=%s)", expectedHash, computed)
		return ReplicaResult{Success: false, Message: msg}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writeBookFiles(relPath, raw, header, body); err != nil {
		return ReplicaResult{}, err
	}
	if err := appendLogLine(p.logPath, logEntry{
		Timestamp: time.Now(),
		BookID:    bookID,
		Path:      relPath,
		Bytes:     len(raw),
	}); err != nil {
		return ReplicaResult{}, err
	}
	return ReplicaResult{Success: true}, nil
}

// writeBookFiles writes raw.txt/header.txt/body.txt under rootDir/relPath.
// Each file is written to a temporary sibling and renamed into place, so a
// crash mid-write never leaves a partially-written file visible under its
// final name.
func (p *Partition) writeBookFiles(relPath string, raw, header, body []byte) error {
	dir := filepath.Join(p.rootDir, relPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating book directory %s: %w", dir, err)
	}
	for name, data := range map[string][]byte{
		"raw.txt":    raw,
		"header.txt": header,
		"body.txt":   body,
	} {
		if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// Locate scans the ingestion log for bookId, first match wins, and returns
// its relative path.
func (p *Partition) Locate(bookID int) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locate(bookID)
}

func (p *Partition) locate(bookID int) (string, bool, error) {
	entries, err := readLogEntries(p.logPath)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.BookID == bookID {
			return e.Path, true, nil
		}
	}
	return "", false, nil
}

// List returns the deduplicated, sorted set of bookIds this node has
// locally ingested.
func (p *Partition) List() ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := readLogEntries(p.logPath)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		seen[e.BookID] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Stats returns the book count and total bytes ingested locally.
func (p *Partition) Stats() (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := readLogEntries(p.logPath)
	if err != nil {
		return Stats{}, err
	}
	seen := make(map[int]struct{}, len(entries))
	var total int64
	for _, e := range entries {
		seen[e.BookID] = struct{}{}
		total += int64(e.Bytes)
	}
	return Stats{BookCount: len(seen), TotalBytes: total}, nil
}

// ReadBody returns the body.txt bytes for relPath, or ErrNotFound if the
// file is missing (e.g. the message bus redelivered an index.request for a
// book this node never received).
func (p *Partition) ReadBody(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(p.rootDir, relPath, "body.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bcerrors.ErrNotFound
		}
		return nil, fmt.Errorf("reading body for %s: %w", relPath, err)
	}
	return data, nil
}

// RootDir returns the partition's root directory.
func (p *Partition) RootDir() string {
	return p.rootDir
}
