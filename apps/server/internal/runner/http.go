package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mafia-lite/apps/server/internal/archive"
	"mafia-lite/mafia"
	"mafia-lite/replay"
)

// HTTPHandler exposes run control and history over plain JSON endpoints.
type HTTPHandler struct {
	runs    *Manager
	archive archive.Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(runs *Manager, archiveService archive.Service) *HTTPHandler {
	return &HTTPHandler{
		runs:    runs,
		archive: archiveService,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRun)
}

// handleRuns covers the collection: POST starts a run, GET lists history.
func (h *HTTPHandler) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodGet:
		h.handleRecent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var cfg mafia.Config
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	run, err := h.runs.StartRun(context.Background(), cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"run_id":     run.ID,
		"started_at": run.StartedAt,
	})
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.archive.ListRecent(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query recent runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"active": h.runs.ListActive(),
	})
}

// handleRun covers /api/runs/<id> and its sub-resources.
func (h *HTTPHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(strings.TrimSpace(path), "/")
	runID := strings.TrimSpace(parts[0])
	if runID == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}
	switch sub {
	case "":
		h.handleStatus(w, runID)
	case "events":
		h.handleEvents(w, r, runID)
	case "tape":
		h.handleTape(w, runID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, runID string) {
	run := h.runs.Get(runID)
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	status, winner, runErr := run.Status()
	resp := map[string]any{
		"run_id":     run.ID,
		"started_at": run.StartedAt,
		"status":     string(status),
		"snapshot":   run.Snapshot(),
	}
	if winner != mafia.WinnerNone {
		resp["winner"] = string(winner)
	}
	if runErr != nil {
		resp["error"] = runErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents prefers the archive; for memory-mode servers it falls back to
// the in-memory tape of a still-tracked run.
func (h *HTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request, runID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	events, err := h.archive.GetRunEvents(ctx, runID)
	if errors.Is(err, archive.ErrNotFound) {
		if run := h.runs.Get(runID); run != nil {
			writeJSON(w, http.StatusOK, map[string]any{"events": run.Tape().Events})
			return
		}
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query run events failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *HTTPHandler) handleTape(w http.ResponseWriter, runID string) {
	run := h.runs.Get(runID)
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = replay.SaveTape(w, run.Tape())
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 20
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 20
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
