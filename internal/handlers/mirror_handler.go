// Package handlers exposes the tracked-job mirror over a local read-only HTTP
// surface. Nothing here mutates engine state except the manual refresh
// trigger, which only forces a poll pass.
package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/common"
	"github.com/ternarybob/jobsync/internal/services/sync"
)

// MirrorHandler serves the engine's read surface.
type MirrorHandler struct {
	engine *sync.Engine
	logger arbor.ILogger
}

// NewMirrorHandler creates a handler over the sync engine.
func NewMirrorHandler(engine *sync.Engine, logger arbor.ILogger) *MirrorHandler {
	return &MirrorHandler{
		engine: engine,
		logger: logger,
	}
}

// ListJobsHandler returns the tracked set, newest first.
// Optional filters: ?job_type=..., ?resource_type=...&resource_id=...
func (h *MirrorHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query()
	jobType := query.Get("job_type")
	resourceType := query.Get("resource_type")
	resourceID := query.Get("resource_id")

	jobs := h.engine.Jobs()
	switch {
	case jobType != "":
		jobs = h.engine.GetJobsByType(jobType)
	case resourceType != "" && resourceID != "":
		jobs = h.engine.GetJobsForResource(resourceType, resourceID)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// StatsHandler returns the latest queue statistics snapshot.
func (h *MirrorHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats := h.engine.QueueStats()
	if stats == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"available": false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"available": true,
		"stats":     stats,
	})
}

// StatusHandler returns connection and mirror status.
func (h *MirrorHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	connection := h.engine.ConnectionStatus()
	status := map[string]interface{}{
		"connection":   connection,
		"live":         connection.IsLive(),
		"active_jobs":  h.engine.ActiveCount(),
		"loading":      h.engine.IsLoading(),
		"last_updated": h.engine.LastUpdated().Format(time.RFC3339),
	}
	if err := h.engine.Err(); err != nil {
		status["error"] = err.Error()
	}

	WriteJSON(w, http.StatusOK, status)
}

// RefreshHandler forces an immediate poll pass regardless of connection state.
func (h *MirrorHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.logger.Info().Msg("Manual refresh requested")
	go h.engine.Refresh()

	WriteSuccess(w, "Refresh started")
}

// VersionHandler returns version information.
func (h *MirrorHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status.
func (h *MirrorHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
