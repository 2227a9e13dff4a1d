package replication

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookcluster/platform/internal/datalake"
	"github.com/bookcluster/platform/internal/hasher"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/grpc"
	"github.com/bookcluster/platform/pkg/proto"
)

func TestHandleReplicateAcceptsMatchingHash(t *testing.T) {
	partition, err := datalake.New(t.TempDir())
	if err != nil {
		t.Fatalf("datalake.New() error = %v", err)
	}

	raw := []byte("raw book bytes")
	req := proto.ReplicationRequest{
		BookID:        10,
		SourceNodeID:  "node-a",
		RelativePath:  "20260101/00/10",
		RawContent:    raw,
		HeaderContent: []byte("header"),
		BodyContent:   []byte("body"),
		ContentHash:   hasher.Hash(raw),
	}

	resp, err := HandleReplicate(partition, req)
	if err != nil {
		t.Fatalf("HandleReplicate() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got message: %s", resp.Message)
	}
	if _, found, _ := partition.Locate(10); !found {
		t.Fatal("expected the replica to be locally recorded after a successful receive")
	}
}

func TestHandleReplicateRejectsHashMismatch(t *testing.T) {
	partition, err := datalake.New(t.TempDir())
	if err != nil {
		t.Fatalf("datalake.New() error = %v", err)
	}

	req := proto.ReplicationRequest{
		BookID:       11,
		RelativePath: "20260101/00/11",
		RawContent:   []byte("raw book bytes"),
		ContentHash:  "wrong-hash",
	}

	resp, err := HandleReplicate(partition, req)
	if err != nil {
		t.Fatalf("HandleReplicate() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected a rejected replica on hash mismatch")
	}
	if _, found, _ := partition.Locate(11); found {
		t.Fatal("a rejected replica must not be recorded")
	}
}

// TestClientReplicateDoesNotRetryHashMismatch verifies that a peer's
// Success:false rejection is classified as non-retryable and reaches the
// caller after exactly one attempt, not resilience.Retry's usual three.
func TestClientReplicateDoesNotRetryHashMismatch(t *testing.T) {
	var attempts atomic.Int32
	server := grpc.NewServer()
	server.Register(replicationMethod, func(ctx context.Context, raw json.RawMessage) (any, error) {
		attempts.Add(1)
		return proto.ReplicationResponse{Success: false, Message: "hash mismatch"}, nil
	})

	go server.Serve("127.0.0.1:0")
	defer server.Stop()

	addr := waitForAddr(t, server)

	client := NewClient(2*time.Second, 5*time.Second, nil)
	resp, err := client.replicateToOne(context.Background(), addr, proto.ReplicationRequest{BookID: 99})

	if err == nil {
		t.Fatal("expected an error for a rejected replica")
	}
	if !errors.Is(err, bcerrors.ErrHashMismatch) {
		t.Fatalf("expected error to wrap ErrHashMismatch, got: %v", err)
	}
	if resp.Success {
		t.Fatal("expected Success=false in the returned response")
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable rejection, got %d", got)
	}
}

func waitForAddr(t *testing.T, server *grpc.Server) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := server.Addr(); addr != "" {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never started listening")
	return ""
}
