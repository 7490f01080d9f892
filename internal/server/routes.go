package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - tracked-job mirror (read-only)
	mux.HandleFunc("/api/jobs", s.app.MirrorHandler.ListJobsHandler)
	mux.HandleFunc("/api/stats", s.app.MirrorHandler.StatsHandler)
	mux.HandleFunc("/api/status", s.app.MirrorHandler.StatusHandler)

	// API routes - manual refresh trigger
	mux.HandleFunc("/api/refresh", s.app.MirrorHandler.RefreshHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.MirrorHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.MirrorHandler.HealthHandler)
	mux.HandleFunc("/health", s.app.MirrorHandler.HealthHandler)

	return mux
}
