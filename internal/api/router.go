package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/delphi/v2/backend/internal/api/handlers"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/metrics"
)

// Handlers bundles everything the router mounts. Lines may be nil when
// the line watcher is disabled; its routes are skipped then.
type Handlers struct {
	Runs     *handlers.RunsHandler
	Picks    *handlers.PicksHandler
	Profiles *handlers.ProfilesHandler
	Lines    *handlers.LinesHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, pm *metrics.PipelineMetrics, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus scrape endpoint
	if pm != nil {
		r.Handle("/metrics", pm.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Run endpoints
	api.HandleFunc("/runs", h.Runs.Create).Methods("POST")
	api.HandleFunc("/runs", h.Runs.List).Methods("GET")
	api.HandleFunc("/runs/{id}", h.Runs.Get).Methods("GET")

	// Pick endpoints
	api.HandleFunc("/picks", h.Picks.List).Methods("GET")

	// Profile endpoints
	api.HandleFunc("/profiles", h.Profiles.List).Methods("GET")
	api.HandleFunc("/profiles/{id}", h.Profiles.Get).Methods("GET")

	// Live line endpoints
	if h.Lines != nil {
		api.HandleFunc("/lines", h.Lines.List).Methods("GET")
		api.HandleFunc("/lines/{gameId}", h.Lines.Get).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "delphi-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
