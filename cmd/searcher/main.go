// Command searcher runs the C8 query front door: boolean term search over
// the distributed index, TF·IDF ranking, Redis result caching, and
// Postgres catalog metadata decoration.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"github.com/bookcluster/platform/internal/search"
	"github.com/bookcluster/platform/pkg/config"
	bcerrors "github.com/bookcluster/platform/pkg/errors"
	"github.com/bookcluster/platform/pkg/health"
	"github.com/bookcluster/platform/pkg/logger"
	"github.com/bookcluster/platform/pkg/metrics"
	"github.com/bookcluster/platform/pkg/middleware"
	"github.com/bookcluster/platform/pkg/postgres"
	pkgredis "github.com/bookcluster/platform/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	ring := index.NewRing(cfg.IndexRing.Nodes, cfg.IndexRing.Partitions)
	idxClient := index.NewClient(ring, cfg.Node.ID, index.NewStore(), cfg.IndexRing.BackupCount)
	engine := search.NewEngine(idxClient, idxClient)

	var queryCache *search.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = search.NewQueryCache(redisClient, cfg.Search)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Search.CacheTTL)
	}

	var metadataStore *search.MetadataStore
	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, result metadata decoration disabled", "error", err)
	} else {
		defer pgClient.Close()
		metadataStore = search.NewMetadataStore(pgClient)
		slog.Info("metadata decoration enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	h := search.NewHandler(engine, queryCache, metadataStore, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
