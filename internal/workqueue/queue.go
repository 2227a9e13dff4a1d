// Package workqueue implements the cluster-shared bulk-ingest FIFO (C9):
// a Redis list of pending bookIds, shared benchmark/progress stats, and a
// per-node worker pool that drains the queue against the local datalake.
package workqueue

import (
	"context"
	"strconv"
	"time"

	pkgredis "github.com/bookcluster/platform/pkg/redis"
)

const (
	pendingKey  = "workqueue:pending"
	pollTimeout = time.Second
)

// Queue is the cluster-shared FIFO of pending bookIds. Every node in the
// cluster polls the same Redis list, so a bookId is handed to exactly one
// worker across the whole cluster.
type Queue struct {
	client *pkgredis.Client
}

// NewQueue builds a Queue over an already-connected Redis client.
func NewQueue(client *pkgredis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue appends bookIds to the tail of the queue in order.
func (q *Queue) Enqueue(ctx context.Context, bookIDs []int) error {
	if len(bookIDs) == 0 {
		return nil
	}
	values := make([]interface{}, len(bookIDs))
	for i, id := range bookIDs {
		values[i] = strconv.Itoa(id)
	}
	return q.client.RPush(ctx, pendingKey, values...)
}

// Poll blocks up to one second for a bookId at the head of the queue,
// returning (0, false, nil) on timeout so callers can re-check a stop
// signal between polls rather than blocking indefinitely.
func (q *Queue) Poll(ctx context.Context) (int, bool, error) {
	_, value, ok, err := q.client.BLPop(ctx, pollTimeout, pendingKey)
	if err != nil || !ok {
		return 0, false, err
	}
	bookID, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, nil
	}
	return bookID, true, nil
}

// Len reports the number of bookIds currently pending.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingKey)
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	return q.client.Del(ctx, pendingKey)
}
