package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// JobHandler serves the asynchronous parse job API
type JobHandler struct {
	jobService interfaces.ParseJobService
	logger     arbor.ILogger
}

func NewJobHandler(jobService interfaces.ParseJobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// jobResponse is the poll-facing job view
type jobResponse struct {
	ID                    string           `json:"id"`
	Status                models.JobStatus `json:"status"`
	FileName              string           `json:"file_name"`
	Mode                  models.ParseMode `json:"mode"`
	PageCount             int              `json:"page_count"`
	CreditsReserved       int64            `json:"credits_reserved"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds,omitempty"`
	Markdown              string           `json:"markdown,omitempty"`
	SourceDocumentID      string           `json:"source_document_id,omitempty"`
	Error                 string           `json:"error,omitempty"`
}

func toJobResponse(job *models.ParseJob) jobResponse {
	return jobResponse{
		ID:                    job.ID,
		Status:                job.Status,
		FileName:              job.FileName,
		Mode:                  job.Mode,
		PageCount:             job.PageCount,
		CreditsReserved:       job.CreditsReserved,
		ProcessingTimeSeconds: job.ProcessingTime().Seconds(),
		Markdown:              job.Markdown,
		SourceDocumentID:      job.SourceDocumentID,
		Error:                 job.ErrorMessage,
	}
}

// SubmitHandler handles POST /api/jobs/parse. FileBytes rides as base64
// in the JSON body.
func (h *JobHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.SubmitParseRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	job, err := h.jobService.Submit(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("account_id", req.AccountID).Msg("Parse job submit failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, toJobResponse(job))
}

// GetJobHandler handles GET /api/jobs/parse/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/parse/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toJobResponse(job))
}
