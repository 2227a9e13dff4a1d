// Command ingestion starts the per-node ingestion front door.
//
// It accepts new books via POST /api/v1/ingest, writes them to the local
// datalake partition (C2), replicates to peers (C4), and publishes
// index.request/doc.ingested onto the message bus (C5) for C7 to consume.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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
	"github.com/bookcluster/platform/internal/ingest"
	"github.com/bookcluster/platform/internal/replication"
	"github.com/bookcluster/platform/pkg/config"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/health"
	"github.com/bookcluster/platform/pkg/logger"
	"github.com/bookcluster/platform/pkg/metrics"
	mw "github.com/bookcluster/platform/pkg/middleware"
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
	slog.Info("starting ingestion service", "node_id", cfg.Node.ID, "port", cfg.Server.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	partition, err := datalake.New(cfg.Datalake.RootDir)
	if err != nil {
		slog.Error("failed to initialize datalake partition", "error", err)
		os.Exit(1)
	}

	replClient := replication.NewClient(cfg.Datalake.ReplicaConnTimeout, cfg.Datalake.ReplicaTotalTimeout, m)
	publisher := bus.NewPublisher(cfg.Bus)
	defer publisher.Close()

	orchestrator := ingest.New(partition, replClient, publisher, cfg.Node, cfg.Datalake.ReplicationFactor)
	h := ingest.NewHandler(orchestrator)

	checker := health.NewChecker()
	checker.Register("datalake", func(ctx context.Context) health.ComponentHealth {
		if _, err := partition.Stats(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var handler http.Handler = mux
	handler = mw.Metrics(m)(handler)
	handler = mw.Timeout(cfg.Server.WriteTimeout)(handler)
	handler = mw.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
