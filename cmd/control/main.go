// Command control runs the per-node benchmark control plane (C9): it
// exposes start/startWorkers/stopWorkers/status/queue-size over HTTP and, once
// started, drains the cluster-shared work queue by fetching each bookId's
// raw text and running it through the same ingest orchestration
// cmd/ingestion's HTTP handler uses.
//
// Usage:
//
//	go run ./cmd/control [-config configs/development.yaml]
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
	"github.com/bookcluster/platform/internal/workqueue"
	"github.com/bookcluster/platform/pkg/config"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/health"
	"github.com/bookcluster/platform/pkg/logger"
	"github.com/bookcluster/platform/pkg/metrics"
	mw "github.com/bookcluster/platform/pkg/middleware"
	pkgredis "github.com/bookcluster/platform/pkg/redis"
)

const workerPoolSize = 8

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
	slog.Info("starting control service", "node_id", cfg.Node.ID, "port", cfg.Server.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("redis is required for the work queue", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	partition, err := datalake.New(cfg.Datalake.RootDir)
	if err != nil {
		slog.Error("failed to initialize datalake partition", "error", err)
		os.Exit(1)
	}
	replClient := replication.NewClient(cfg.Datalake.ReplicaConnTimeout, cfg.Datalake.ReplicaTotalTimeout, m)
	publisher := bus.NewPublisher(cfg.Bus)
	defer publisher.Close()
	orchestrator := ingest.New(partition, replClient, publisher, cfg.Node, cfg.Datalake.ReplicationFactor)
	source := ingest.NewGutenbergSource()

	queue := workqueue.NewQueue(redisClient)
	stats := workqueue.NewStats(redisClient)
	benchmark := workqueue.NewBenchmark(queue, stats)
	pool := workqueue.NewWorkerPool(queue, stats, cfg.Node.ID, func(ctx context.Context, bookID int) error {
		raw, err := source.Fetch(ctx, bookID)
		if err != nil {
			return fmt.Errorf("fetching book %d: %w", bookID, err)
		}
		_, err = orchestrator.Ingest(ctx, bookID, raw)
		return err
	})

	h := workqueue.NewHandler(benchmark, pool, workerPoolSize)

	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /benchmark/start", h.Start)
	mux.HandleFunc("POST /benchmark/workers/start", h.StartWorkers)
	mux.HandleFunc("POST /benchmark/workers/stop", h.StopWorkers)
	mux.HandleFunc("GET /benchmark/status", h.Status)
	mux.HandleFunc("GET /benchmark/queue/size", h.QueueSize)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = mw.Metrics(m)(chain)
	chain = mw.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = mw.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		pool.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("control service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("control service stopped")
}
