package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs and batches
	mux.HandleFunc("/api/jobs/run", s.app.JobHandler.RunJobHandler)        // POST - run one account
	mux.HandleFunc("/api/batch/run", s.app.JobHandler.RunBatchHandler)     // POST - run all active accounts
	mux.HandleFunc("/api/batch/", s.app.JobHandler.BatchProgressHandler)   // GET /{id} - batch progress
	mux.HandleFunc("/api/queue/stats", s.app.JobHandler.QueueStatsHandler) // GET - queue depth and running count

	// API routes - Run history
	mux.HandleFunc("/api/runs", s.app.RunHandler.ListHandler) // GET - authentication run history

	// API routes - Accounts
	mux.HandleFunc("/api/accounts", s.app.AccountHandler.ListHandler)      // GET - redacted account list
	mux.HandleFunc("/api/accounts/sync", s.app.AccountHandler.SyncHandler) // POST - force spreadsheet resync

	// API routes - Scheduler
	mux.HandleFunc("/api/schedule", s.app.SchedulerHandler.ScheduleHandler)       // GET/PUT - daily trigger time
	mux.HandleFunc("/api/schedule/pause", s.app.SchedulerHandler.PauseHandler)    // POST - suspend scheduled firing
	mux.HandleFunc("/api/schedule/resume", s.app.SchedulerHandler.ResumeHandler)  // POST - clear pause state
	mux.HandleFunc("/api/window", s.app.WindowHandler.CheckHandler)               // GET - manual batch admission window

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.StatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path != "/" {
			s.app.APIHandler.NotFoundHandler(w, r)
			return
		}
		s.app.APIHandler.HealthHandler(w, r)
	})

	return mux
}
