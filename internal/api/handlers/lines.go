package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/internal/realtime/queue"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// LinesHandler serves the live line cache. Lines here are advisory
// watch data; a run's decision basis is its frozen snapshot, available
// under the run itself.
type LinesHandler struct {
	cache    *cache.LineCache
	lineSync *queue.LineSync // cross-instance fallback, may be disabled
	logger   *logger.Logger
}

// NewLinesHandler creates a new lines handler
func NewLinesHandler(lineCache *cache.LineCache, lineSync *queue.LineSync, log *logger.Logger) *LinesHandler {
	return &LinesHandler{
		cache:    lineCache,
		lineSync: lineSync,
		logger:   log,
	}
}

// List returns every watched game's latest lines.
// GET /api/lines
func (h *LinesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.cache.GetAll()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(all),
		"lines":   all,
		"stats":   h.cache.Stats(),
	})
}

// Get returns one game's latest lines, falling back to the shared
// Redis view when this instance is not the one running the feeds.
// GET /api/lines/{gameId}
func (h *LinesHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	gl, ok := h.cache.Get(gameID)
	if !ok && h.lineSync != nil {
		shared, err := h.lineSync.Get(r.Context(), gameID)
		if err != nil {
			h.logger.WithError(err).WithField("game_id", gameID).Warn("Shared line lookup failed")
		}
		if shared != nil {
			gl = shared
			ok = true
		}
	}

	if !ok {
		respondError(w, http.StatusNotFound, "no lines for game")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"lines":   gl,
	})
}
