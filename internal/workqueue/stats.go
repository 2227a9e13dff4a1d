package workqueue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgredis "github.com/bookcluster/platform/pkg/redis"
)

const (
	statsKey    = "workqueue:stats"
	progressKey = "workqueue:progress"
)

// Status is the lifecycle state of a benchmark run.
type Status int

const (
	StatusIdle      Status = 0
	StatusRunning   Status = 1
	StatusCompleted Status = 2
)

// AggregatedStatus is the cluster-wide view status() returns: counters
// summed across every node's progress entries, plus the throughput
// calculation carried over verbatim from the benchmark tooling this
// supplements — totalProcessed*1000/elapsedMs.
type AggregatedStatus struct {
	BenchmarkID      string
	Status           Status
	TotalBooks       int
	TotalProcessed   int64
	TotalErrors      int64
	ElapsedMs        int64
	ThroughputPerSec float64
}

// Stats wraps the shared Redis hashes backing a benchmark run's stats and
// per-node progress counters.
type Stats struct {
	client *pkgredis.Client
}

// NewStats builds a Stats over an already-connected Redis client.
func NewStats(client *pkgredis.Client) *Stats {
	return &Stats{client: client}
}

// Start clears any prior run's stats and progress, then records a new
// benchmark as running.
func (s *Stats) Start(ctx context.Context, benchmarkID string, totalBooks int) error {
	if err := s.client.Del(ctx, statsKey, progressKey); err != nil {
		return fmt.Errorf("clearing prior benchmark state: %w", err)
	}
	return s.client.HSet(ctx, statsKey,
		"benchmarkId", benchmarkID,
		"startTime", strconv.FormatInt(time.Now().UnixMilli(), 10),
		"endTime", "",
		"totalBooks", strconv.Itoa(totalBooks),
		"status", strconv.Itoa(int(StatusRunning)),
	)
}

// IncrementProcessed records one successfully ingested book for nodeID.
func (s *Stats) IncrementProcessed(ctx context.Context, nodeID string) error {
	_, err := s.client.HIncrBy(ctx, progressKey, nodeID+"_processed", 1)
	return err
}

// IncrementErrors records one failed ingest attempt for nodeID.
func (s *Stats) IncrementErrors(ctx context.Context, nodeID string) error {
	_, err := s.client.HIncrBy(ctx, progressKey, nodeID+"_errors", 1)
	return err
}

// ClaimCompletion is the single-winner CAS: the first worker across the
// whole cluster to observe the queue draining while status is still
// running calls this, and only that caller's write actually lands.
func (s *Stats) ClaimCompletion(ctx context.Context) (bool, error) {
	status, err := s.statusField(ctx)
	if err != nil {
		return false, err
	}
	if status != StatusRunning {
		return false, nil
	}
	claimed, err := s.client.HSetNX(ctx, statsKey, "completionClaim", "1")
	if err != nil || !claimed {
		return false, err
	}
	if err := s.client.HSet(ctx, statsKey,
		"endTime", strconv.FormatInt(time.Now().UnixMilli(), 10),
		"status", strconv.Itoa(int(StatusCompleted)),
	); err != nil {
		return false, err
	}
	return true, nil
}

// Status reports the aggregated cluster-wide benchmark status.
func (s *Stats) Status(ctx context.Context) (AggregatedStatus, error) {
	fields, err := s.client.HGetAll(ctx, statsKey)
	if err != nil {
		return AggregatedStatus{}, fmt.Errorf("reading benchmark stats: %w", err)
	}
	progress, err := s.client.HGetAll(ctx, progressKey)
	if err != nil {
		return AggregatedStatus{}, fmt.Errorf("reading benchmark progress: %w", err)
	}

	result := AggregatedStatus{
		BenchmarkID: fields["benchmarkId"],
		Status:      Status(parseIntOrZero(fields["status"])),
		TotalBooks:  int(parseIntOrZero(fields["totalBooks"])),
	}
	for field, value := range progress {
		count := parseIntOrZero(value)
		switch {
		case strings.HasSuffix(field, "_processed"):
			result.TotalProcessed += count
		case strings.HasSuffix(field, "_errors"):
			result.TotalErrors += count
		}
	}

	startMs := parseIntOrZero(fields["startTime"])
	endMs := parseIntOrZero(fields["endTime"])
	if startMs > 0 {
		if endMs > 0 {
			result.ElapsedMs = endMs - startMs
		} else {
			result.ElapsedMs = time.Now().UnixMilli() - startMs
		}
	}
	if result.ElapsedMs > 0 {
		result.ThroughputPerSec = float64(result.TotalProcessed) * 1000 / float64(result.ElapsedMs)
	}
	return result, nil
}

func (s *Stats) statusField(ctx context.Context) (Status, error) {
	value, ok, err := s.client.HGet(ctx, statsKey, "status")
	if err != nil {
		return StatusIdle, err
	}
	if !ok {
		return StatusIdle, nil
	}
	return Status(parseIntOrZero(value)), nil
}

func parseIntOrZero(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
