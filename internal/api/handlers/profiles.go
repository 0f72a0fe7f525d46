package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/delphi/v2/backend/internal/profile"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// ProfilesHandler exposes the loaded capper profiles read-only.
// Profiles change by deployment, never through the API.
type ProfilesHandler struct {
	registry *profile.Registry
	logger   *logger.Logger
}

// NewProfilesHandler creates a new profiles handler
func NewProfilesHandler(registry *profile.Registry, log *logger.Logger) *ProfilesHandler {
	return &ProfilesHandler{
		registry: registry,
		logger:   log,
	}
}

// List returns the loaded profile ids and which one is active.
// GET /api/profiles
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	active := h.registry.Active()
	activeID := ""
	if active != nil {
		activeID = active.Meta.ProfileID
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"active":   activeID,
		"profiles": h.registry.IDs(),
	})
}

// Get returns one profile with its content hash.
// GET /api/profiles/{id}
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	prof, ok := h.registry.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}

	hash, err := profile.Hash(prof)
	if err != nil {
		h.logger.WithError(err).WithField("profile_id", id).Error("Failed to hash profile")
		respondError(w, http.StatusInternalServerError, "failed to hash profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"hash":    hash,
		"profile": prof,
	})
}
