package search

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/bookcluster/platform/pkg/logger"
)

// Handler is the HTTP front door for query execution (§4.8): parses q,
// mode, limit, and the optional author/language/year filters, runs the
// engine (through the cache when one is configured), and decorates
// results with catalog metadata when a MetadataStore is configured.
type Handler struct {
	engine       *Engine
	cache        *QueryCache
	metadata     *MetadataStore
	defaultLimit int
	maxLimit     int
}

// NewHandler builds a Handler. cache and metadata may both be nil, in
// which case search runs uncached and results carry no catalog metadata.
func NewHandler(engine *Engine, cache *QueryCache, metadata *MetadataStore, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        cache,
		metadata:     metadata,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	mode := ModeAND
	if m := r.URL.Query().Get("mode"); m != "" {
		switch Mode(m) {
		case ModeAND, ModeOR:
			mode = Mode(m)
		default:
			h.writeError(w, http.StatusBadRequest, "mode must be AND or OR")
			return
		}
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	var results []ScoredDoc
	var err error
	cacheHit := false
	computeFn := func() ([]ScoredDoc, error) {
		return h.engine.Search(ctx, query, mode, limit)
	}
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, mode, limit, computeFn)
	} else {
		results, err = computeFn()
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	decorated, err := h.decorate(r, results)
	if err != nil {
		log.Error("metadata decoration failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	log.Info("search completed",
		"query", query, "mode", mode, "returned", decoratedLen(decorated),
		"cache_hit", cacheHit, "latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"mode":    mode,
		"results": decorated,
	})
}

// decoratedLen returns the element count of a decorate() result, which may
// be either []ScoredDoc or []DecoratedResult depending on whether metadata
// decoration is configured.
func decoratedLen(decorated any) int {
	return reflect.ValueOf(decorated).Len()
}

func (h *Handler) decorate(r *http.Request, results []ScoredDoc) (any, error) {
	if h.metadata == nil {
		return results, nil
	}
	decorated, err := h.metadata.Decorate(r.Context(), results)
	if err != nil {
		return nil, err
	}
	filter := parseFilter(r)
	return Filter(decorated, filter), nil
}

func parseFilter(r *http.Request) MetadataFilter {
	f := MetadataFilter{
		Author:   r.URL.Query().Get("author"),
		Language: r.URL.Query().Get("language"),
	}
	if y := r.URL.Query().Get("year"); y != "" {
		if parsed, err := strconv.Atoi(y); err == nil {
			f.Year = parsed
		}
	}
	return f
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits": hits, "misses": misses, "total": total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
