// Package indexing implements the consumer side of C7: turning an
// index.request message into posting-list writes against the distributed
// index, exactly once per (bookId, contentHash) pair.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bookcluster/platform/internal/bus"
	"github.com/bookcluster/platform/internal/datalake"
	"github.com/bookcluster/platform/internal/index"
	"github.com/bookcluster/platform/internal/tokenize"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/metrics"
)

// Engine consumes IndexRequest messages and applies them to the
// distributed index.
type Engine struct {
	partition *datalake.Partition
	index     *index.Client
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine builds an Engine over a local datalake partition (to read
// body.txt) and a distributed index client (to write postings).
func NewEngine(partition *datalake.Partition, idx *index.Client, m *metrics.Metrics) *Engine {
	return &Engine{
		partition: partition,
		index:     idx,
		metrics:   m,
		logger:    slog.Default().With("component", "indexing-engine"),
	}
}

// Consume implements bus.IndexRequestHandler: the 7-step duplicate-check,
// read, tokenize, write, mark-processed, ack sequence. Returning nil leaves
// the message acked even on expected failure modes (duplicate, missing
// body); returning a non-nil error leaves it unacked for redelivery.
func (e *Engine) Consume(ctx context.Context, req bus.IndexRequest) error {
	processed, err := e.index.IsProcessed(ctx, req.IdempotencyKey)
	if err != nil {
		return err
	}
	if processed {
		dup := fmt.Errorf("idempotency key %s: %w", req.IdempotencyKey, bcerrors.ErrDuplicateIndexRequest)
		if e.metrics != nil {
			e.metrics.DuplicatesSkippedTotal.Inc()
		}
		e.logger.Debug("skipping already-processed index request", "idempotency_key", req.IdempotencyKey, "reason", dup)
		return nil
	}

	body, err := e.partition.ReadBody(req.DatalakePath)
	if err != nil {
		if errors.Is(err, bcerrors.ErrNotFound) {
			e.logger.Error("body missing for index request, acking without indexing",
				"book_id", req.BookID, "path", req.DatalakePath)
			return nil
		}
		return err
	}

	termPositions := buildPositions(req.BookID, body)

	if err := e.index.IndexDocument(ctx, req.BookID, termPositions); err != nil {
		return err
	}
	if err := e.index.MarkProcessed(ctx, req.IdempotencyKey); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Info("indexed document", "book_id", req.BookID, "terms", len(termPositions))
	return nil
}

// buildPositions tokenizes body and groups sorted positions by term for a
// single bookId. IndexDocument wraps each term's positions into a Posting
// internally, so this returns the plain term -> positions map it expects.
func buildPositions(bookID int, body []byte) map[string][]int {
	tokens := tokenize.Tokenize(string(body))
	positions := make(map[string][]int)
	for _, tok := range tokens {
		positions[tok.Term] = append(positions[tok.Term], tok.Position)
	}
	for term := range positions {
		sort.Ints(positions[term])
	}
	return positions
}
