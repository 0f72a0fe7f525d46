package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/bankroll"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// PicksHandler serves finalized picks and their stake plans
// ⭐ SSOT: 픽 API 핸들러는 여기서만
type PicksHandler struct {
	picks   contracts.PickReader
	planner *bankroll.Planner // nil when staking is not configured
	logger  *logger.Logger
}

// NewPicksHandler creates a new picks handler
func NewPicksHandler(picks contracts.PickReader, planner *bankroll.Planner, log *logger.Logger) *PicksHandler {
	return &PicksHandler{
		picks:   picks,
		planner: planner,
		logger:  log,
	}
}

// List returns recent picks, optionally filtered to one calendar day.
// GET /api/picks?limit=20
// GET /api/picks?date=2026-01-15
func (h *PicksHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		picks []*contracts.Pick
		err   error
	)

	if rawDate := r.URL.Query().Get("date"); rawDate != "" {
		date, parseErr := time.Parse("2006-01-02", rawDate)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		picks, err = h.picks.ListForDate(r.Context(), date)
	} else {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, atoiErr := strconv.Atoi(raw)
			if atoiErr != nil || parsed <= 0 || parsed > 200 {
				respondError(w, http.StatusBadRequest, "limit must be between 1 and 200")
				return
			}
			limit = parsed
		}
		picks, err = h.picks.ListRecent(r.Context(), limit)
	}

	if err != nil {
		h.logger.WithError(err).Error("Failed to list picks")
		respondError(w, http.StatusInternalServerError, "failed to list picks")
		return
	}

	payload := map[string]interface{}{
		"success": true,
		"count":   len(picks),
		"picks":   picks,
	}

	// Attach dollar sizing when a staking plan is configured
	if h.planner != nil && len(picks) > 0 {
		slate, planErr := h.planner.PlanSlate(picks)
		if planErr != nil {
			h.logger.WithError(planErr).Warn("Failed to size slate")
		} else {
			payload["stake_plan"] = slate
		}
	}

	respondJSON(w, http.StatusOK, payload)
}
