package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookcluster/platform/pkg/logger"
)

// Handler is the HTTP front door for the ingest pipeline.
type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewHandler builds a Handler over an Orchestrator.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{
		orchestrator: o,
		logger:       slog.Default().With("component", "ingest-handler"),
	}
}

// Ingest decodes, validates, and runs the ingest orchestration for one
// book, per POST /api/v1/ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.orchestrator.Ingest(ctx, req.BookID, req.RawContent)
	if err != nil {
		log.Error("ingest failed", "book_id", req.BookID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	log.Info("book ingested", "book_id", req.BookID, "status", resp.Status, "replicas_written", resp.ReplicasWritten)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
