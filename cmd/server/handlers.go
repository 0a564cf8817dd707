package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/RajkumarR2006/gemarag"
)

type handler struct {
	engine gemarag.Engine
}

func newHandler(e gemarag.Engine) *handler {
	return &handler{engine: e}
}

// POST /api/query
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := h.engine.Ask(ctx, req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		slog.Error("query error", "query", req.Query, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// GET /api/health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Store().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		slog.Error("health check error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"chunks":     stats.Chunks,
		"embeddings": stats.Embeddings,
		"sources":    stats.Sources,
	})
}

// GET /api/graph/stats
func (h *handler) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GraphStats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
