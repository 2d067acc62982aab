// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ResultsHandler handles result log requests.
type ResultsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Dependencies, maxLimit int) *ResultsHandler {
	return &ResultsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleResults dispatches GET and POST /results requests.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleGet handles GET /results?limit=N requests.
func (h *ResultsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%s: %w", op, ErrBadRequest))
		return
	}
	results, err := h.deps.RecentResults(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handlePost handles POST /results requests.
func (h *ResultsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"
	var req saveResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	saved, err := h.deps.SaveResult(r.Context(), req.Mode, req.Target, req.Stats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
