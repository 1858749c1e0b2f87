package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
)

// IngestHandler serves document submission and deletion
type IngestHandler struct {
	ingestService interfaces.IngestService
	logger        arbor.ILogger
}

func NewIngestHandler(ingestService interfaces.IngestService, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// IngestHandler handles POST /api/ingest
func (h *IngestHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.IngestRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("knowledge_base_id", req.KnowledgeBaseID).Msg("Ingest failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// DeleteDocumentHandler handles DELETE /api/documents/{id}
func (h *IngestHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	documentID := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if documentID == "" || strings.Contains(documentID, "/") {
		WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		WriteError(w, http.StatusBadRequest, "account_id query parameter is required")
		return
	}

	if err := h.ingestService.DeleteDocument(r.Context(), accountID, documentID); err != nil {
		h.logger.Warn().Err(err).Str("document_id", documentID).Msg("Document delete failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"document_id": documentID,
	})
}
