package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/services/cleanup"
)

// CleanupHandler triggers orphan-chunk sweeps on demand
type CleanupHandler struct {
	cleanupService *cleanup.Service
	logger         arbor.ILogger
}

func NewCleanupHandler(cleanupService *cleanup.Service, logger arbor.ILogger) *CleanupHandler {
	return &CleanupHandler{
		cleanupService: cleanupService,
		logger:         logger,
	}
}

type cleanupRequest struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
}

// CleanupHandler handles POST /api/cleanup. With a knowledge_base_id the
// sweep covers that knowledge base; without one it covers all of them.
func (h *CleanupHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req cleanupRequest
	if r.ContentLength > 0 {
		if !DecodeAndValidate(w, r, &req) {
			return
		}
	}

	if req.KnowledgeBaseID != "" {
		result, err := h.cleanupService.CleanupOrphans(r.Context(), req.KnowledgeBaseID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
		return
	}

	results, err := h.cleanupService.CleanupAll(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}
