// Command indexnode runs one member of the distributed inverted index
// ring (C6): it owns a term partition range, serves Index.* RPCs to the
// rest of the cluster, and periodically snapshots its local postings.
//
// Usage:
//
//	go run ./cmd/indexnode [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookcluster/platform/internal/index"
	"github.com/bookcluster/platform/pkg/config"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/health"
	"github.com/bookcluster/platform/pkg/logger"
	"github.com/bookcluster/platform/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		if bcerrors.IsFatal(err) {
			os.Exit(1)
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index node", "node_id", cfg.Node.ID, "partitions", cfg.IndexRing.Partitions)

	if cfg.Metrics.Enabled {
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	node := index.NewNode(cfg.IndexRing, cfg.Node.ID)

	checker := health.NewChecker()
	checker.Register("index-store", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("index node health endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("health endpoint error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		node.Stop()
	}()

	addr := nodeAddr(cfg)
	slog.Info("index node serving RPC", "addr", addr)
	if err := node.Serve(ctx, addr); err != nil {
		slog.Error("index node serve error", "error", err)
		os.Exit(1)
	}
	slog.Info("index node stopped")
}

func nodeAddr(cfg *config.Config) string {
	if cfg.Node.Addr != "" {
		return cfg.Node.Addr
	}
	return fmt.Sprintf(":%d", cfg.Server.Port+1)
}
