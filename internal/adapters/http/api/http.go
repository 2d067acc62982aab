// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/keysprint/internal/adapters/repository"
	"github.com/okian/keysprint/internal/domain/race"
	"github.com/okian/keysprint/internal/domain/stats"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Race intents. Each returns false on backpressure.
	JoinRace(ctx context.Context, username string) bool
	ReportProgress(ctx context.Context, id string, wpm, progress float64) bool
	PlayAgain(ctx context.Context) bool
	LeaveRace(ctx context.Context) bool

	// RaceState exposes a consistent snapshot of the shared room.
	RaceState(ctx context.Context) (race.Snapshot, error)

	// Result log operations.
	SaveResult(ctx context.Context, mode string, target int, st stats.Stats) (repository.Result, error)
	RecentResults(ctx context.Context, limit int) ([]repository.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	raceHandler    *RaceHandler
	resultsHandler *ResultsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxResults int) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		raceHandler:    NewRaceHandler(deps),
		resultsHandler: NewResultsHandler(deps, maxResults),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/results", MetricsMiddleware(s.resultsHandler.HandleResults, "results"))
	mux.HandleFunc("/race/join", MetricsMiddleware(s.raceHandler.HandleJoin, "race_join"))
	mux.HandleFunc("/race/progress", MetricsMiddleware(s.raceHandler.HandleProgress, "race_progress"))
	mux.HandleFunc("/race/play-again", MetricsMiddleware(s.raceHandler.HandlePlayAgain, "race_play_again"))
	mux.HandleFunc("/race/leave", MetricsMiddleware(s.raceHandler.HandleLeave, "race_leave"))
	mux.HandleFunc("/race/state", MetricsMiddleware(s.raceHandler.HandleState, "race_state"))
}

// joinRequest mirrors the schema for POST /race/join.
type joinRequest struct {
	Username string `json:"username"`
}

func (r joinRequest) validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("missing username")
	}
	return nil
}

// progressRequest mirrors the schema for POST /race/progress.
type progressRequest struct {
	ID       string  `json:"id"`
	WPM      float64 `json:"wpm"`
	Progress float64 `json:"progress"`
}

func (r progressRequest) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("missing id")
	}
	return nil
}

// saveResultRequest mirrors the schema for POST /results.
type saveResultRequest struct {
	Mode   string      `json:"mode"`
	Target int         `json:"target"`
	Stats  stats.Stats `json:"stats"`
}

func (r saveResultRequest) validate() error {
	switch r.Mode {
	case "race", "time", "words":
	default:
		return errors.New("mode must be race, time or words")
	}
	if r.Target < 0 {
		return errors.New("target must not be negative")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
