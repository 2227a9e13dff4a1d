package ingest

import (
	"context"
	"testing"

	"github.com/bookcluster/platform/internal/datalake"
	"github.com/bookcluster/platform/internal/replication"
	"github.com/bookcluster/platform/pkg/config"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	partition, err := datalake.New(t.TempDir())
	if err != nil {
		t.Fatalf("datalake.New() error = %v", err)
	}
	repl := replication.NewClient(0, 0, nil)
	node := config.NodeConfig{ID: "self", Ring: []string{"self"}}
	// Publisher is left nil: every test below only reaches the
	// already-present no-op path, which returns before publish is ever
	// called.
	return New(partition, repl, nil, node, 1)
}

func TestValidateRequestRejectsMissingBookID(t *testing.T) {
	err := ValidateRequest(&Request{RawContent: []byte("hello")})
	if err == nil {
		t.Fatal("ValidateRequest() error = nil, want a validation error for a missing book_id")
	}
}

func TestValidateRequestRejectsEmptyContent(t *testing.T) {
	err := ValidateRequest(&Request{BookID: 1})
	if err == nil {
		t.Fatal("ValidateRequest() error = nil, want a validation error for empty raw_content")
	}
}

func TestValidateRequestAcceptsWellFormedRequest(t *testing.T) {
	err := ValidateRequest(&Request{BookID: 1, RawContent: []byte("hello")})
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v, want nil", err)
	}
}

func TestIngestReturnsAvailableOnReingest(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := o.partition.Ingest(1, []byte("*** START OF TEXT ***\nhello world\n*** END OF TEXT ***"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if first.Status != datalake.StatusDownloaded {
		t.Fatalf("first Ingest() status = %v, want downloaded", first.Status)
	}

	resp, err := o.Ingest(ctx, 1, []byte("different bytes entirely"))
	if err != nil {
		t.Fatalf("Orchestrator.Ingest() error = %v", err)
	}
	if resp.Status != datalake.StatusAvailable {
		t.Fatalf("Orchestrator.Ingest() status = %v, want available (no-op on re-ingest)", resp.Status)
	}
	if resp.RelativePath != first.RelativePath {
		t.Fatalf("Orchestrator.Ingest() path = %q, want %q", resp.RelativePath, first.RelativePath)
	}
}
