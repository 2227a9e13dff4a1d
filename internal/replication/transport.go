package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bookcluster/platform/internal/datalake"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/grpc"
	"github.com/bookcluster/platform/pkg/metrics"
	"github.com/bookcluster/platform/pkg/proto"
	"github.com/bookcluster/platform/pkg/resilience"
)

const replicationMethod = "Replication.Receive"

// Client pushes replicas to peer nodes over the internal RPC transport,
// dialing a fresh connection for each attempt and closing it afterwards.
type Client struct {
	connTimeout  time.Duration
	totalTimeout time.Duration
	breakers     sync.Map // peer addr -> *resilience.CircuitBreaker
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewClient builds a replication Client. totalTimeout bounds all attempts
// to one peer together. connTimeout is stored on the Client but no call
// path applies it: a single attempt has no deadline of its own.
func NewClient(connTimeout, totalTimeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		connTimeout:  connTimeout,
		totalTimeout: totalTimeout,
		metrics:      m,
		logger:       slog.Default().With("component", "replication-client"),
	}
}

// Replicate sends req to every peer in peers and returns each peer's
// response, in no particular order. Each peer gets up to three attempts
// within totalTimeout (one attempt if the peer rejects the hash). A failure
// to reach one peer does not stop delivery to the others; once its
// attempts are spent it is logged and counted, and not tried again. Callers report
// replicasWritten as the count of successful responses.
func (c *Client) Replicate(ctx context.Context, peers []string, req proto.ReplicationRequest) []proto.ReplicationResponse {
	var wg sync.WaitGroup
	var mu sync.Mutex
	responses := make([]proto.ReplicationResponse, 0, len(peers))
	for _, peer := range peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			resp, err := c.replicateToOne(ctx, addr, req)
			if err != nil {
				if c.metrics != nil {
					c.metrics.ReplicationFailureTotal.Inc()
				}
				c.logger.Error("replication failed", "peer", addr, "book_id", req.BookID, "error", err)
				resp = proto.ReplicationResponse{Success: false, NodeID: addr, BookID: req.BookID, Message: err.Error()}
			} else if c.metrics != nil {
				c.metrics.ReplicasWrittenTotal.Inc()
			}
			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
		}(peer)
	}
	wg.Wait()
	return responses
}

func (c *Client) replicateToOne(ctx context.Context, addr string, req proto.ReplicationRequest) (proto.ReplicationResponse, error) {
	breaker := c.breakerFor(addr)
	var resp proto.ReplicationResponse
	// A hash-mismatch rejection is a permanent disagreement about content,
	// not a transient failure; retrying it would just burn attempts on the
	// same answer. Capture it here and let the retry loop see success so it
	// stops after one attempt, then surface the real error below.
	var nonRetryable error
	err := resilience.WithTimeout(ctx, c.totalTimeout, "replicate:"+addr, func(timeoutCtx context.Context) error {
		return resilience.Retry(timeoutCtx, "replicate:"+addr, resilience.RetryConfig{MaxAttempts: 3}, func() error {
			callErr := breaker.Execute(func() error {
				var err error
				resp, err = c.call(addr, req)
				return err
			})
			if callErr != nil && errors.Is(callErr, bcerrors.ErrHashMismatch) {
				nonRetryable = callErr
				return nil
			}
			return callErr
		})
	})
	if nonRetryable != nil {
		return resp, nonRetryable
	}
	return resp, err
}

func (c *Client) call(addr string, req proto.ReplicationRequest) (proto.ReplicationResponse, error) {
	conn, err := grpc.Dial(addr)
	if err != nil {
		return proto.ReplicationResponse{}, fmt.Errorf("dialing replica peer %s: %w", addr, err)
	}
	defer conn.Close()

	var resp proto.ReplicationResponse
	if err := conn.Call(replicationMethod, req, &resp); err != nil {
		return proto.ReplicationResponse{}, fmt.Errorf("calling %s on %s: %w", replicationMethod, addr, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("peer %s rejected replica for book %d: %s: %w", addr, req.BookID, resp.Message, bcerrors.ErrHashMismatch)
	}
	return resp, nil
}

func (c *Client) breakerFor(addr string) *resilience.CircuitBreaker {
	if b, ok := c.breakers.Load(addr); ok {
		return b.(*resilience.CircuitBreaker)
	}
	b := resilience.NewCircuitBreaker("replication:"+addr, resilience.CircuitBreakerConfig{})
	actual, _ := c.breakers.LoadOrStore(addr, b)
	return actual.(*resilience.CircuitBreaker)
}

// HandleReplicate applies an inbound ReplicationRequest to partition and
// builds the response. It is the logic behind the Replication.Receive RPC
// method, factored out so it can be exercised directly in tests.
func HandleReplicate(partition *datalake.Partition, req proto.ReplicationRequest) (proto.ReplicationResponse, error) {
	result, err := partition.ReceiveReplica(req.BookID, req.RelativePath, req.RawContent, req.HeaderContent, req.BodyContent, req.ContentHash)
	if err != nil {
		return proto.ReplicationResponse{}, err
	}
	return proto.ReplicationResponse{
		Success: result.Success,
		NodeID:  req.SourceNodeID,
		BookID:  req.BookID,
		Message: result.Message,
	}, nil
}

// RegisterServer wires the Replication.Receive RPC method into server,
// dispatching to partition for storage.
func RegisterServer(server *grpc.Server, partition *datalake.Partition) {
	server.Register(replicationMethod, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.ReplicationRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding replication request: %w", err)
		}
		return HandleReplicate(partition, req)
	})
}
