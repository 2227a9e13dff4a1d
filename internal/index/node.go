package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bookcluster/platform/pkg/config"
	"github.com/bookcluster/platform/pkg/grpc"
)

// Node is one member of the index ring: a local Store, its RPC server, a
// Client for reaching the rest of the ring, and an optional periodic
// snapshot exporter.
type Node struct {
	Store  *Store
	Ring   *Ring
	Client *Client
	server *grpc.Server
	cfg    config.IndexRingConfig
	selfID string
	logger *slog.Logger
}

// NewNode builds a Node from config, ready to Serve.
func NewNode(cfg config.IndexRingConfig, selfID string) *Node {
	store := NewStore()
	ring := NewRing(cfg.Nodes, cfg.Partitions)
	return &Node{
		Store:  store,
		Ring:   ring,
		Client: NewClient(ring, selfID, store, cfg.BackupCount),
		server: grpc.NewServer(),
		cfg:    cfg,
		selfID: selfID,
		logger: slog.Default().With("component", "index-node", "node_id", selfID),
	}
}

// Serve registers the Index.* RPC methods and blocks accepting connections
// on addr until Stop is called. If a snapshot directory is configured, the
// store is warmed from disk before serving and periodically re-snapshotted.
func (n *Node) Serve(ctx context.Context, addr string) error {
	if n.cfg.SnapshotDir != "" {
		path := n.snapshotPath()
		if err := LoadSnapshot(n.Store, path); err != nil {
			n.logger.Warn("failed to load snapshot, starting empty", "error", err)
		}
		interval := n.cfg.SnapshotInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		done := make(chan struct{})
		go SnapshotScheduler(n.Store, path, interval)(done)
		go func() {
			<-ctx.Done()
			close(done)
			_ = WriteSnapshot(n.Store, path)
		}()
	}

	RegisterServer(n.server, n.Store)
	n.logger.Info("index node serving", "addr", addr)
	return n.server.Serve(addr)
}

// Stop gracefully shuts down the RPC server.
func (n *Node) Stop() {
	n.server.Stop()
}

func (n *Node) snapshotPath() string {
	return filepath.Join(n.cfg.SnapshotDir, n.selfID+".snapshot")
}
