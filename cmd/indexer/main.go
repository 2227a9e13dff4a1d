// Command indexer runs the C7 index.request consumer: it reads each
// message's book body from the local datalake, tokenizes it, and writes
// postings to the distributed index (C6), exactly once per idempotency key.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
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

	"github.com/bookcluster/platform/internal/bus"
	"github.com/bookcluster/platform/internal/datalake"
	"github.com/bookcluster/platform/internal/index"
	"github.com/bookcluster/platform/internal/indexing"
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
	slog.Info("starting indexer", "node_id", cfg.Node.ID)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	partition, err := datalake.New(cfg.Datalake.RootDir)
	if err != nil {
		slog.Error("failed to initialize datalake partition", "error", err)
		os.Exit(1)
	}

	ring := index.NewRing(cfg.IndexRing.Nodes, cfg.IndexRing.Partitions)
	idxClient := index.NewClient(ring, cfg.Node.ID, index.NewStore(), cfg.IndexRing.BackupCount)

	engine := indexing.NewEngine(partition, idxClient, m)
	consumer := bus.NewIndexRequestConsumer(cfg.Bus, engine.Consume)

	checker := health.NewChecker()
	checker.Register("datalake", func(ctx context.Context) health.ComponentHealth {
		if _, err := partition.Stats(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("indexer health endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("health endpoint error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("indexer consuming", "topic", cfg.Bus.Topics.IndexRequest)
	if err := consumer.Run(ctx); err != nil {
		slog.Error("indexer consumer stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer stopped")
}
