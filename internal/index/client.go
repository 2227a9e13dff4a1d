package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/bookcluster/platform/pkg/grpc"
	"github.com/bookcluster/platform/pkg/proto"
	"github.com/bookcluster/platform/pkg/resilience"
)

// Client is the distributed-index client: it groups term batches by owning
// node via ring and issues one RPC per node rather than one per term,
// taking the local store's fast path when a node is itself the owner.
type Client struct {
	ring        *Ring
	selfID      string
	local       *Store
	backupCount int
	conns       sync.Map // node addr -> *grpc.Client
	breakers    sync.Map // node addr -> *resilience.CircuitBreaker
}

// NewClient builds a distributed index Client. local is this node's own
// Store, used directly whenever ring routes a term back to selfID.
// backupCount is the number of synchronous backup replicas PutAll writes
// alongside the primary, per §4.6; pass 0 for a single-node ring or a
// caller that only needs read/write access without backup durability
// (benchmarks, stateless query-path clients).
func NewClient(ring *Ring, selfID string, local *Store, backupCount int) *Client {
	return &Client{ring: ring, selfID: selfID, local: local, backupCount: backupCount}
}

// registryKey is the fixed key the ring routes to a single designated node
// holding the cluster-wide document registry.
const registryKey = "__documents__"

// IndexDocument writes termPositions' postings for bookID and registers
// bookID in the global document registry, so stats.total_documents stays
// exact without requiring every node to see every document's terms.
func (c *Client) IndexDocument(ctx context.Context, bookID int, termPositions map[string][]int) error {
	updates := make(map[string][]proto.Posting, len(termPositions))
	for term, positions := range termPositions {
		updates[term] = []proto.Posting{{BookID: bookID, Positions: positions}}
	}
	if err := c.PutAll(ctx, updates); err != nil {
		return err
	}
	return c.registerDocument(ctx, bookID)
}

func (c *Client) registerDocument(ctx context.Context, bookID int) error {
	node := c.ring.OwnerOf(registryKey)
	if node == c.selfID {
		c.local.RegisterDocument(bookID)
		return nil
	}
	var resp proto.RegisterDocumentResponse
	return c.call(ctx, node, "Index.RegisterDocument", proto.RegisterDocumentRequest{BookID: bookID}, &resp)
}

// TotalDocuments returns the cluster-wide distinct document count from the
// registry node. Implements search.StatsSource.
func (c *Client) TotalDocuments(ctx context.Context) (int64, error) {
	node := c.ring.OwnerOf(registryKey)
	if node == c.selfID {
		return c.local.RegistryCount(), nil
	}
	var resp proto.TotalDocumentsResponse
	if err := c.call(ctx, node, "Index.TotalDocuments", proto.TotalDocumentsRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// GetAll fetches postings for terms, routing each term to its owning node
// and batching terms destined for the same node into a single RPC.
func (c *Client) GetAll(ctx context.Context, terms []string) (map[string][]proto.Posting, error) {
	grouped := c.ring.GroupByOwner(terms)
	result := make(map[string][]proto.Posting, len(terms))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, len(grouped))

	for node, nodeTerms := range grouped {
		wg.Add(1)
		go func(node string, nodeTerms []string) {
			defer wg.Done()
			postings, err := c.getAllFromNode(ctx, node, nodeTerms)
			if err != nil {
				errs <- fmt.Errorf("getAll from %s: %w", node, err)
				return
			}
			mu.Lock()
			for term, p := range postings {
				result[term] = p
			}
			mu.Unlock()
		}(node, nodeTerms)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) getAllFromNode(ctx context.Context, node string, terms []string) (map[string][]proto.Posting, error) {
	if node == c.selfID {
		return c.local.GetAll(terms), nil
	}
	var resp proto.GetAllResponse
	if err := c.call(ctx, node, "Index.GetAll", proto.GetAllRequest{Terms: terms}, &resp); err != nil {
		return nil, err
	}
	return resp.Postings, nil
}

// PutAll writes postings grouped by term, routing each group to its owning
// node and, in the same concurrent fan-out, the same per-term updates to
// each term's backup replicas (§4.6), waiting for all of them before
// returning. A write is not
// acknowledged to the caller until both the primary and every backup have
// confirmed it.
func (c *Client) PutAll(ctx context.Context, updates map[string][]proto.Posting) error {
	terms := make([]string, 0, len(updates))
	for term := range updates {
		terms = append(terms, term)
	}
	groups := c.ring.GroupByOwner(terms)
	for node, backupTerms := range c.groupByBackup(terms) {
		groups[node] = append(groups[node], backupTerms...)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(groups))
	for node, nodeTerms := range groups {
		nodeUpdates := make(map[string][]proto.Posting, len(nodeTerms))
		for _, t := range nodeTerms {
			nodeUpdates[t] = updates[t]
		}
		wg.Add(1)
		go func(node string, nodeUpdates map[string][]proto.Posting) {
			defer wg.Done()
			if err := c.putAllToNode(ctx, node, nodeUpdates); err != nil {
				errs <- fmt.Errorf("putAll to %s: %w", node, err)
			}
		}(node, nodeUpdates)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// groupByBackup buckets terms by each of their backup nodes (§4.6), so a
// batch PutAll issues one extra RPC per backup node rather than one per
// term per backup.
func (c *Client) groupByBackup(terms []string) map[string][]string {
	grouped := make(map[string][]string)
	for _, term := range terms {
		for _, node := range c.ring.BackupsOf(term, c.backupCount) {
			grouped[node] = append(grouped[node], term)
		}
	}
	return grouped
}

func (c *Client) putAllToNode(ctx context.Context, node string, updates map[string][]proto.Posting) error {
	if node == c.selfID {
		c.local.PutAll(updates)
		return nil
	}
	var resp proto.PutAllResponse
	return c.call(ctx, node, "Index.PutAll", proto.PutAllRequest{Updates: updates}, &resp)
}

// Lock acquires the advisory lock for term on its owning node.
func (c *Client) Lock(ctx context.Context, term string) (bool, error) {
	node := c.ring.OwnerOf(term)
	if node == c.selfID {
		return c.local.Lock(term), nil
	}
	var resp proto.LockResponse
	if err := c.call(ctx, node, "Index.Lock", proto.LockRequest{Term: term}, &resp); err != nil {
		return false, err
	}
	return resp.Acquired, nil
}

// Unlock releases the advisory lock for term on its owning node.
func (c *Client) Unlock(ctx context.Context, term string) error {
	node := c.ring.OwnerOf(term)
	if node == c.selfID {
		c.local.Unlock(term)
		return nil
	}
	var resp proto.LockResponse
	return c.call(ctx, node, "Index.Unlock", proto.LockRequest{Term: term}, &resp)
}

// IsProcessed checks idempotencyKey against the node that owns its hash
// partition, using the same ring as terms so the check is deterministic.
func (c *Client) IsProcessed(ctx context.Context, idempotencyKey string) (bool, error) {
	node := c.ring.OwnerOf(idempotencyKey)
	if node == c.selfID {
		return c.local.IsProcessed(idempotencyKey), nil
	}
	var resp proto.IsProcessedResponse
	if err := c.call(ctx, node, "Index.IsProcessed", proto.IsProcessedRequest{IdempotencyKey: idempotencyKey}, &resp); err != nil {
		return false, err
	}
	return resp.Processed, nil
}

// MarkProcessed records idempotencyKey as handled on its owning node.
func (c *Client) MarkProcessed(ctx context.Context, idempotencyKey string) error {
	node := c.ring.OwnerOf(idempotencyKey)
	if node == c.selfID {
		c.local.MarkProcessed(idempotencyKey)
		return nil
	}
	var resp proto.MarkProcessedResponse
	return c.call(ctx, node, "Index.MarkProcessed", proto.MarkProcessedRequest{IdempotencyKey: idempotencyKey}, &resp)
}

func (c *Client) call(ctx context.Context, node, method string, req, resp any) error {
	breaker := c.breakerFor(node)
	return resilience.Retry(ctx, method+":"+node, resilience.RetryConfig{MaxAttempts: 2}, func() error {
		return breaker.Execute(func() error {
			conn, err := c.connFor(node)
			if err != nil {
				return err
			}
			if err := conn.Call(method, req, resp); err != nil {
				c.conns.Delete(node)
				return err
			}
			return nil
		})
	})
}

func (c *Client) connFor(node string) (*grpc.Client, error) {
	if conn, ok := c.conns.Load(node); ok {
		return conn.(*grpc.Client), nil
	}
	conn, err := grpc.Dial(node)
	if err != nil {
		return nil, fmt.Errorf("dialing index node %s: %w", node, err)
	}
	actual, loaded := c.conns.LoadOrStore(node, conn)
	if loaded {
		conn.Close()
		return actual.(*grpc.Client), nil
	}
	return conn, nil
}

func (c *Client) breakerFor(node string) *resilience.CircuitBreaker {
	if b, ok := c.breakers.Load(node); ok {
		return b.(*resilience.CircuitBreaker)
	}
	b := resilience.NewCircuitBreaker("index:"+node, resilience.CircuitBreakerConfig{})
	actual, _ := c.breakers.LoadOrStore(node, b)
	return actual.(*resilience.CircuitBreaker)
}
