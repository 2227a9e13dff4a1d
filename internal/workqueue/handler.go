package workqueue

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bookcluster/platform/pkg/logger"
)

const maxBenchmarkSize = 100000

// Handler exposes start/startWorkers/stopWorkers/status/queue-size over HTTP,
// mirroring the control surface a benchmark coordinator needs (§4.9).
type Handler struct {
	benchmark *Benchmark
	pool      *WorkerPool
	poolSize  int
	logger    *slog.Logger
}

// NewHandler builds a Handler. poolSize is the number of worker
// goroutines startWorkers spins up on this node.
func NewHandler(benchmark *Benchmark, pool *WorkerPool, poolSize int) *Handler {
	return &Handler{
		benchmark: benchmark,
		pool:      pool,
		poolSize:  poolSize,
		logger:    slog.Default().With("component", "workqueue-handler"),
	}
}

// Start handles POST /benchmark/start?n=100[&validatedOnly=true]: clears
// the cluster-shared queue and stats, then enqueues n bookIds.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 || n > maxBenchmarkSize {
		h.writeError(w, http.StatusBadRequest, "parameter 'n' must be an integer between 1 and 100000")
		return
	}
	validatedOnly := r.URL.Query().Get("validatedOnly") == "true"

	benchmarkID := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := h.benchmark.Start(ctx, benchmarkID, n, validatedOnly); err != nil {
		log.Error("benchmark start failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "starting benchmark failed")
		return
	}
	h.pool.Start(ctx, h.poolSize)

	log.Info("benchmark started", "benchmark_id", benchmarkID, "total_books", n)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":      "benchmark started",
		"benchmark_id": benchmarkID,
		"total_books":  n,
	})
}

// StartWorkers handles POST /benchmark/workers/start: joins this node's
// worker pool to an already-started benchmark.
func (h *Handler) StartWorkers(w http.ResponseWriter, r *http.Request) {
	h.pool.Start(r.Context(), h.poolSize)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "workers started on this node"})
}

// StopWorkers handles POST /benchmark/workers/stop.
func (h *Handler) StopWorkers(w http.ResponseWriter, r *http.Request) {
	h.pool.Stop()
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "workers stopped on this node"})
}

// Status handles GET /benchmark/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.benchmark.Status(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "reading benchmark status failed")
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// QueueSize handles GET /benchmark/queue/size.
func (h *Handler) QueueSize(w http.ResponseWriter, r *http.Request) {
	size, err := h.benchmark.queue.Len(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "reading queue size failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"queue_size": size})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
