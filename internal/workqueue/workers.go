package workqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const drainTimeout = 30 * time.Second

// IngestFunc performs the local, per-node effect of handling one bookId
// pulled off the queue (typically a datalake ingest against a pre-fetched
// document source).
type IngestFunc func(ctx context.Context, bookID int) error

// WorkerPool drains Queue against IngestFunc using poolSize goroutines,
// reporting progress to Stats under nodeID and cooperatively stopping on
// Stop rather than being killed mid-task.
type WorkerPool struct {
	queue  *Queue
	stats  *Stats
	nodeID string
	ingest IngestFunc
	logger *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWorkerPool builds a WorkerPool over queue/stats shared with the rest
// of the cluster and this node's local ingest function.
func NewWorkerPool(queue *Queue, stats *Stats, nodeID string, ingest IngestFunc) *WorkerPool {
	return &WorkerPool{
		queue:  queue,
		stats:  stats,
		nodeID: nodeID,
		ingest: ingest,
		logger: slog.Default().With("component", "workqueue-pool", "node_id", nodeID),
		stop:   make(chan struct{}),
	}
}

// Start spawns poolSize worker goroutines. Each loops: poll (bounded
// timeout) -> if a bookId arrived, ingest it and record processed/error ->
// if the queue is observed empty while the benchmark is still running,
// race to claim completion.
func (p *WorkerPool) Start(ctx context.Context, poolSize int) {
	for i := 0; i < poolSize; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *WorkerPool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		bookID, ok, err := p.queue.Poll(ctx)
		if err != nil {
			p.logger.Error("queue poll failed", "error", err)
			continue
		}
		if !ok {
			p.checkDrained(ctx)
			continue
		}

		if err := p.ingest(ctx, bookID); err != nil {
			p.logger.Error("ingest failed", "book_id", bookID, "error", err)
			if err := p.stats.IncrementErrors(ctx, p.nodeID); err != nil {
				p.logger.Error("recording error count failed", "error", err)
			}
			continue
		}
		if err := p.stats.IncrementProcessed(ctx, p.nodeID); err != nil {
			p.logger.Error("recording processed count failed", "error", err)
		}
	}
}

func (p *WorkerPool) checkDrained(ctx context.Context) {
	length, err := p.queue.Len(ctx)
	if err != nil || length > 0 {
		return
	}
	claimed, err := p.stats.ClaimCompletion(ctx)
	if err != nil {
		p.logger.Error("claiming benchmark completion failed", "error", err)
		return
	}
	if claimed {
		p.logger.Info("benchmark completed, queue drained")
	}
}

// Stop signals every worker to exit after its current iteration and waits
// up to a 30 second drain timeout before returning, forcing termination
// (i.e. abandoning the wait) rather than blocking forever.
func (p *WorkerPool) Stop() {
	close(p.stop)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		p.logger.Warn("worker pool drain timed out, forcing shutdown")
	}
}
