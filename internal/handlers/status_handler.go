package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/services/cleanup"
)

// StatusHandler serves the health and knowledge base stats endpoints
type StatusHandler struct {
	maintenance *cleanup.Service
	logger      arbor.ILogger
	startedAt   time.Time
}

func NewStatusHandler(maintenance *cleanup.Service, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		maintenance: maintenance,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        common.GetVersion(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// StatsHandler handles GET /api/stats?knowledge_base_id=
func (h *StatusHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	knowledgeBaseID := r.URL.Query().Get("knowledge_base_id")
	if knowledgeBaseID == "" {
		WriteError(w, http.StatusBadRequest, "knowledge_base_id query parameter is required")
		return
	}

	stats, err := h.maintenance.Stats(r.Context(), knowledgeBaseID)
	if err != nil {
		h.logger.Warn().Err(err).Str("knowledge_base_id", knowledgeBaseID).Msg("Stats lookup failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
