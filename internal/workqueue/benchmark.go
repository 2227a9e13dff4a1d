package workqueue

import (
	"context"
	"fmt"
)

// knownValidBookIDs is a small curated list of bookIds known to exist in
// the upstream document source, used when a benchmark run asks for
// validatedOnly rather than an arbitrary sequential range.
var knownValidBookIDs = []int{1, 11, 84, 1342, 2701, 1661, 2554, 98, 4300, 76}

// Benchmark ties Queue and Stats together under the three operations C9
// exposes at the cluster level: start, startWorkers/stopWorkers (via
// WorkerPool), and status.
type Benchmark struct {
	queue *Queue
	stats *Stats
}

// NewBenchmark builds a Benchmark over a shared Queue and Stats.
func NewBenchmark(queue *Queue, stats *Stats) *Benchmark {
	return &Benchmark{queue: queue, stats: stats}
}

// Start clears any previous run's queue, stats, and progress, then
// enqueues n bookIds: a sequential 1..n range by default, or n bookIds
// drawn from a curated known-valid list when validatedOnly is set.
func (b *Benchmark) Start(ctx context.Context, benchmarkID string, n int, validatedOnly bool) error {
	if err := b.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clearing queue: %w", err)
	}
	if err := b.stats.Start(ctx, benchmarkID, n); err != nil {
		return fmt.Errorf("resetting benchmark stats: %w", err)
	}
	return b.queue.Enqueue(ctx, selectBookIDs(n, validatedOnly))
}

// Status reports the aggregated cluster-wide benchmark status.
func (b *Benchmark) Status(ctx context.Context) (AggregatedStatus, error) {
	return b.stats.Status(ctx)
}

func selectBookIDs(n int, validatedOnly bool) []int {
	if !validatedOnly {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i + 1
		}
		return ids
	}
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, knownValidBookIDs[i%len(knownValidBookIDs)])
	}
	return ids
}
