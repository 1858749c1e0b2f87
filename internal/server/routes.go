package server

import (
	"net/http"
)

// setupRoutes registers all API routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Ingestion
	mux.HandleFunc("/api/ingest", s.app.IngestHandler.IngestHandler)
	mux.HandleFunc("/api/documents/", s.app.IngestHandler.DeleteDocumentHandler)

	// Asynchronous parse jobs
	mux.HandleFunc("/api/jobs/parse", s.app.JobHandler.SubmitHandler)
	mux.HandleFunc("/api/jobs/parse/", s.app.JobHandler.GetJobHandler)

	// Retrieval
	mux.HandleFunc("/api/query", s.app.QueryHandler.QueryHandler)

	// Maintenance
	mux.HandleFunc("/api/cleanup", s.app.CleanupHandler.CleanupHandler)

	// Health and stats
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/stats", s.app.StatusHandler.StatsHandler)

	return mux
}
