package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
)

// QueryHandler serves retrieval queries
type QueryHandler struct {
	retrievalService interfaces.RetrievalService
	logger           arbor.ILogger
}

func NewQueryHandler(retrievalService interfaces.RetrievalService, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		retrievalService: retrievalService,
		logger:           logger,
	}
}

// QueryHandler handles POST /api/query
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.QueryRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.retrievalService.Query(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("knowledge_base_id", req.KnowledgeBaseID).Msg("Query failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, response)
}
