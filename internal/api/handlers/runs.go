package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/delphi/v2/backend/internal/brain"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// RunsHandler drives and inspects decision runs
// ⭐ SSOT: 런 API 핸들러는 여기서만
type RunsHandler struct {
	orchestrator *brain.Orchestrator
	store        contracts.RunStore
	logger       *logger.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(orch *brain.Orchestrator, store contracts.RunStore, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		orchestrator: orch,
		store:        store,
		logger:       log,
	}
}

// CreateRunRequest is the POST /api/runs body
type CreateRunRequest struct {
	GameID  string `json:"game_id"`
	BetType string `json:"bet_type"`
	DryRun  bool   `json:"dry_run"`
}

// Create executes a decision run for one (game, bet type) tuple.
// POST /api/runs
//
// The Idempotency-Key header makes the call replay-safe: a repeat with
// the same key returns the stored decision from the lines as they were,
// not a fresh decision on moved lines.
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.GameID == "" {
		respondError(w, http.StatusBadRequest, "game_id is required")
		return
	}
	if !contracts.IsValidBetType(req.BetType) {
		respondError(w, http.StatusBadRequest, "bet_type must be TOTAL or SPREAD")
		return
	}

	params := contracts.RunParams{
		GameID:         req.GameID,
		BetType:        contracts.BetType(req.BetType),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		TriggeredBy:    contracts.TriggerManual,
		DryRun:         req.DryRun,
	}

	run, err := h.orchestrator.Execute(r.Context(), params)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"game_id":  req.GameID,
			"bet_type": req.BetType,
		}).Warn("Run failed")

		// A failed run is still a recorded outcome; return it with the error
		status := statusForError(err)
		respondJSON(w, status, map[string]interface{}{
			"error": err.Error(),
			"kind":  string(contracts.KindOf(err)),
			"run":   run,
		})
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"run":     run,
	})
}

// Get returns one run with its stage trail and pick.
// GET /api/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to load run")
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"run":     run,
	})
}

// List returns recent runs, newest first.
// GET /api/runs?limit=50
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(runs),
		"runs":    runs,
	})
}
