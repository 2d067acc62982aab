// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RaceHandler handles race intent and state requests.
type RaceHandler struct {
	deps Dependencies
}

// NewRaceHandler creates a new race handler.
func NewRaceHandler(deps Dependencies) *RaceHandler {
	return &RaceHandler{deps: deps}
}

// HandleJoin handles POST /race/join requests.
func (h *RaceHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_join"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if ok := h.deps.JoinRace(r.Context(), req.Username); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleProgress handles POST /race/progress requests.
func (h *RaceHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_progress"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if ok := h.deps.ReportProgress(r.Context(), req.ID, req.WPM, req.Progress); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandlePlayAgain handles POST /race/play-again requests.
func (h *RaceHandler) HandlePlayAgain(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_play_again"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if ok := h.deps.PlayAgain(r.Context()); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleLeave handles POST /race/leave requests.
func (h *RaceHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_leave"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if ok := h.deps.LeaveRace(r.Context()); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleState handles GET /race/state requests.
func (h *RaceHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_state"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.RaceState(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
