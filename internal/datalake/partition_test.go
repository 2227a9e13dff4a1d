package datalake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bookcluster/platform/internal/hasher"
)

func newTestPartition(t *testing.T) *Partition {
	t.Helper()
	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

const sampleBook = "Title: Sample\nAuthor: Someone\n" +
	"*** START OF THE PROJECT GUTENBERG EBOOK SAMPLE ***\n" +
	"It was the best of times.\n" +
	"*** END OF THE PROJECT GUTENBERG EBOOK SAMPLE ***\n"

func TestIngestWritesFilesAndLog(t *testing.T) {
	p := newTestPartition(t)

	res, err := p.Ingest(1, []byte(sampleBook))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Status != StatusDownloaded {
		t.Fatalf("Status = %v, want downloaded", res.Status)
	}

	body, err := p.ReadBody(res.RelativePath)
	if err != nil {
		t.Fatalf("ReadBody() error = %v", err)
	}
	if len(body) == 0 {
		t.Fatal("expected non-empty body")
	}

	ids, err := p.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("List() = %v, want [1]", ids)
	}
}

func TestIngestIsIdempotentOnReingest(t *testing.T) {
	p := newTestPartition(t)

	first, err := p.Ingest(7, []byte(sampleBook))
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	second, err := p.Ingest(7, []byte("completely different bytes"))
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if second.Status != StatusAvailable {
		t.Fatalf("Status = %v, want available", second.Status)
	}
	if second.RelativePath != first.RelativePath {
		t.Fatalf("re-ingest changed the recorded path: %q != %q", second.RelativePath, first.RelativePath)
	}

	entries, err := readLogEntries(p.logPath)
	if err != nil {
		t.Fatalf("readLogEntries() error = %v", err)
	}
	count := 0
	for _, e := range entries {
		if e.BookID == 7 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one log line for book 7, got %d", count)
	}
}

func TestLocateUnknownBook(t *testing.T) {
	p := newTestPartition(t)
	_, ok, err := p.Locate(999)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if ok {
		t.Fatal("expected Locate to report absent for an unknown book")
	}
}

func TestStatsAggregatesBytes(t *testing.T) {
	p := newTestPartition(t)
	if _, err := p.Ingest(1, []byte(sampleBook)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := p.Ingest(2, []byte(sampleBook)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	stats, err := p.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.BookCount != 2 {
		t.Fatalf("BookCount = %d, want 2", stats.BookCount)
	}
	if stats.TotalBytes != int64(2*len(sampleBook)) {
		t.Fatalf("TotalBytes = %d, want %d", stats.TotalBytes, 2*len(sampleBook))
	}
}

func TestReceiveReplicaRejectsHashMismatch(t *testing.T) {
	p := newTestPartition(t)
	raw := []byte(sampleBook)

	res, err := p.ReceiveReplica(3, "20260101/00/3", raw, []byte("h"), []byte("b"), "not-the-real-hash")
	if err != nil {
		t.Fatalf("ReceiveReplica() error = %v", err)
	}
	if res.Success {
		t.Fatal("expected ReceiveReplica to reject a hash mismatch")
	}

	if _, err := os.Stat(filepath.Join(p.RootDir(), "20260101/00/3", "raw.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected no files written on hash mismatch, stat err = %v", err)
	}
	if _, ok, _ := p.Locate(3); ok {
		t.Fatal("expected no log entry written on hash mismatch")
	}
}

func TestReceiveReplicaAcceptsMatchingHash(t *testing.T) {
	p := newTestPartition(t)
	raw := []byte(sampleBook)
	header, body := "h", "b"
	hash := hasher.Hash(raw)

	res, err := p.ReceiveReplica(4, "20260101/00/4", raw, []byte(header), []byte(body), hash)
	if err != nil {
		t.Fatalf("ReceiveReplica() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got message: %s", res.Message)
	}

	got, err := p.ReadBody("20260101/00/4")
	if err != nil {
		t.Fatalf("ReadBody() error = %v", err)
	}
	if string(got) != body {
		t.Fatalf("ReadBody() = %q, want %q", got, body)
	}

	path, ok, err := p.Locate(4)
	if err != nil || !ok {
		t.Fatalf("Locate() = %q, %v, %v, want found", path, ok, err)
	}
}

func TestReadBodyMissingReturnsNotFound(t *testing.T) {
	p := newTestPartition(t)
	if _, err := p.ReadBody("no/such/path"); err == nil {
		t.Fatal("expected an error for a missing body file")
	}
}
