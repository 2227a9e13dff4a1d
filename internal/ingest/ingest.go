// Package ingest orchestrates the write-side data flow (§2): local write
// (C2) -> replicate to N-1 peers (C4) -> publish index.request/doc.ingested
// (C5). It is the single entry point cmd/ingestion's HTTP handler and
// internal/workqueue's worker pool both call.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookcluster/platform/internal/bus"
	"github.com/bookcluster/platform/internal/datalake"
	"github.com/bookcluster/platform/internal/hasher"
	"github.com/bookcluster/platform/internal/replication"
	"github.com/bookcluster/platform/pkg/config"
	"github.com/bookcluster/platform/pkg/proto"
	"github.com/bookcluster/platform/pkg/tracing"
)

// Response is what the ingest orchestration returns once the local write
// has succeeded; the replica count is best-effort and reported, not
// blocking success, per §4.2. Publish failures are logged, not reported.
type Response struct {
	Status          datalake.IngestStatus `json:"status"`
	RelativePath    string                `json:"relativePath"`
	ContentHash     string                `json:"contentHash"`
	ReplicasWritten int                   `json:"replicasWritten"`
}

// Orchestrator wires C2/C4/C5 into the single ingest(bookId, raw) call.
type Orchestrator struct {
	partition   *datalake.Partition
	replication *replication.Client
	publisher   *bus.Publisher
	selfID      string
	ring        []string
	factor      int
	logger      *slog.Logger
}

// New builds an Orchestrator over an already-initialized local partition,
// replication client, and bus publisher. Per-peer replication metrics are
// recorded by the replication.Client itself, not duplicated here; bus
// publishes are not counted by any metric.
func New(partition *datalake.Partition, repl *replication.Client, pub *bus.Publisher, node config.NodeConfig, replicationFactor int) *Orchestrator {
	return &Orchestrator{
		partition:   partition,
		replication: repl,
		publisher:   pub,
		selfID:      node.ID,
		ring:        node.Ring,
		factor:      replicationFactor,
		logger:      slog.Default().With("component", "ingest-orchestrator"),
	}
}

// Ingest performs the local write, then (for a genuinely new document)
// replicates to peers and publishes index.request/doc.ingested. Re-ingest
// of an already-known bookId is the no-op §4.2 describes: no replication,
// no publish, same path returned.
func (o *Orchestrator) Ingest(ctx context.Context, bookID int, raw []byte) (Response, error) {
	traceID := fmt.Sprintf("ingest-%s-%d", o.selfID, bookID)
	ctx, span := tracing.StartSpan(ctx, "ingest.Ingest", traceID)
	span.SetAttr("book_id", bookID)
	defer func() {
		span.End()
		span.Log()
	}()

	result, err := o.localWrite(ctx, bookID, raw)
	if err != nil {
		return Response{}, fmt.Errorf("local ingest: %w", err)
	}
	if result.Status == datalake.StatusAvailable {
		o.logger.Debug("ingest no-op, book already present", "book_id", bookID)
		return Response{Status: result.Status, RelativePath: result.RelativePath, ContentHash: result.ContentHash}, nil
	}

	replicasWritten := o.replicate(ctx, bookID, raw, result)
	o.publish(ctx, bookID, result)
	span.SetAttr("replicas_written", replicasWritten)

	return Response{
		Status:          result.Status,
		RelativePath:    result.RelativePath,
		ContentHash:     result.ContentHash,
		ReplicasWritten: replicasWritten,
	}, nil
}

func (o *Orchestrator) localWrite(ctx context.Context, bookID int, raw []byte) (datalake.IngestResult, error) {
	_, span := tracing.StartChildSpan(ctx, "ingest.localWrite")
	defer span.End()
	return o.partition.Ingest(bookID, raw)
}

func (o *Orchestrator) replicate(ctx context.Context, bookID int, raw []byte, result datalake.IngestResult) int {
	ctx, span := tracing.StartChildSpan(ctx, "ingest.replicate")
	defer span.End()

	peers := replication.SelectPeers(o.ring, o.selfID, bookID, o.factor)
	span.SetAttr("peer_count", len(peers))
	if len(peers) == 0 {
		return 0
	}
	req := proto.ReplicationRequest{
		BookID:        bookID,
		SourceNodeID:  o.selfID,
		RelativePath:  result.RelativePath,
		RawContent:    raw,
		HeaderContent: []byte(result.Header),
		BodyContent:   []byte(result.Body),
		ContentHash:   result.ContentHash,
	}
	responses := o.replication.Replicate(ctx, peers, req)
	written := 0
	for _, resp := range responses {
		if resp.Success {
			written++
		}
	}
	return written
}

func (o *Orchestrator) publish(ctx context.Context, bookID int, result datalake.IngestResult) {
	ctx, span := tracing.StartChildSpan(ctx, "ingest.publish")
	defer span.End()

	now := time.Now().UTC()
	idempotencyKey := hasher.IdempotencyKey(bookID, result.ContentHash)

	indexReq := bus.IndexRequest{
		BookID:         bookID,
		NodeID:         o.selfID,
		DatalakePath:   result.RelativePath,
		ContentHash:    result.ContentHash,
		IdempotencyKey: idempotencyKey,
		Timestamp:      now,
	}
	if err := o.publisher.PublishIndexRequest(ctx, indexReq); err != nil {
		o.logger.Error("publishing index.request failed", "book_id", bookID, "error", err)
	}

	docIngested := bus.DocIngested{
		BookID:       bookID,
		NodeID:       o.selfID,
		DatalakePath: result.RelativePath,
		ContentHash:  result.ContentHash,
		Timestamp:    now,
	}
	if err := o.publisher.PublishDocIngested(ctx, docIngested); err != nil {
		o.logger.Error("publishing doc.ingested failed", "book_id", bookID, "error", err)
	}
}
